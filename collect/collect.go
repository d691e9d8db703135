// Package collect flattens a sorted hierarchy into ordered definition
// streams, one per definition kind.
package collect

import (
	"fmt"
	"strings"

	"github.com/timzifer/hcm/hierarchy"
	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/report"
)

// AmbiguousNodeTypeOrderError reports node type definitions spread over more
// than one source of a module; their relative order would be undefined.
type AmbiguousNodeTypeOrderError struct {
	Module  string
	Sources []string
}

func (e *AmbiguousNodeTypeOrderError) Error() string {
	return fmt.Sprintf("module %s declares node types in more than one source (%s); node types of a module must be declared in a single source",
		e.Module, strings.Join(e.Sources, ", "))
}

// DuplicateContentRootError reports two content definitions of one module
// rooted at the same path.
type DuplicateContentRootError struct {
	Module  string
	Path    string
	Sources []string
}

func (e *DuplicateContentRootError) Error() string {
	return fmt.Sprintf("module %s defines content root %s more than once (%s)",
		e.Module, e.Path, strings.Join(e.Sources, ", "))
}

// NamespaceConflictError reports a prefix bound to two different URIs.
type NamespaceConflictError struct {
	Prefix      string
	URI         string
	PriorURI    string
	Module      string
	PriorModule string
}

func (e *NamespaceConflictError) Error() string {
	return fmt.Sprintf("module %s maps namespace prefix %q to %q, but module %s already mapped it to %q",
		e.Module, e.Prefix, e.URI, e.PriorModule, e.PriorURI)
}

// Definitions holds the ordered definition streams.
type Definitions struct {
	Namespaces []*model.NamespaceDefinition
	NodeTypes  []*model.NodeTypeDefinition
	Content    []*model.ContentDefinition
}

// Collect walks h group by group, project by project, module by module and
// source by source, keeping declaration order inside each source. Content
// definitions of one module are reordered so that a definition never precedes
// the definition of one of its ancestors from the same module.
func Collect(h *hierarchy.Hierarchy, reporter report.Reporter) (*Definitions, error) {
	if reporter == nil {
		reporter = report.Discard()
	}
	defs := &Definitions{}
	namespaces := make(map[string]*model.NamespaceDefinition)

	for _, module := range h.Modules() {
		var content []*model.ContentDefinition
		var nodeTypeSources []string

		for _, source := range module.Sources {
			declaresNodeTypes := false
			for _, def := range source.Definitions {
				switch d := def.(type) {
				case *model.NamespaceDefinition:
					prior, seen := namespaces[d.Prefix]
					if !seen {
						namespaces[d.Prefix] = d
						defs.Namespaces = append(defs.Namespaces, d)
						continue
					}
					if prior.URI != d.URI {
						return nil, &NamespaceConflictError{
							Prefix:      d.Prefix,
							URI:         d.URI,
							PriorURI:    prior.URI,
							Module:      module.FullName(),
							PriorModule: prior.Source().ModuleName(),
						}
					}
					reporter.Report(report.Warning{
						Level:   report.LevelWarn,
						Kind:    report.KindRedundantNamespace,
						Message: fmt.Sprintf("namespace %q is already registered by %s", d.Prefix, prior.Source()),
						Module:  module.FullName(),
					})
				case *model.NodeTypeDefinition:
					declaresNodeTypes = true
					defs.NodeTypes = append(defs.NodeTypes, d)
				case *model.ContentDefinition:
					content = append(content, d)
				default:
					return nil, fmt.Errorf("module %s: unsupported definition %T", module.FullName(), def)
				}
			}
			if declaresNodeTypes {
				nodeTypeSources = append(nodeTypeSources, source.Path)
			}
		}

		if len(nodeTypeSources) > 1 {
			return nil, &AmbiguousNodeTypeOrderError{Module: module.FullName(), Sources: nodeTypeSources}
		}
		if err := checkContentRoots(module, content); err != nil {
			return nil, err
		}
		defs.Content = append(defs.Content, orderByContainment(content)...)
	}
	return defs, nil
}

func checkContentRoots(module *model.Module, content []*model.ContentDefinition) error {
	seen := make(map[string]*model.ContentDefinition, len(content))
	for _, def := range content {
		path := model.NormalizePath(def.RootPath())
		if prior, dup := seen[path]; dup {
			return &DuplicateContentRootError{
				Module:  module.FullName(),
				Path:    path,
				Sources: []string{prior.Source().Path, def.Source().Path},
			}
		}
		seen[path] = def
	}
	return nil
}

// orderByContainment inserts every definition immediately before the first
// already placed definition that it contains, and appends it otherwise. The
// result lists ancestors before descendants while keeping the relative order
// of unrelated definitions.
func orderByContainment(content []*model.ContentDefinition) []*model.ContentDefinition {
	ordered := make([]*model.ContentDefinition, 0, len(content))
	paths := make([]string, 0, len(content))
	for _, def := range content {
		path := model.NormalizePath(def.RootPath())
		at := len(ordered)
		for i, placed := range paths {
			if model.IsAncestorPath(path, placed) {
				at = i
				break
			}
		}
		ordered = append(ordered, nil)
		copy(ordered[at+1:], ordered[at:])
		ordered[at] = def
		paths = append(paths, "")
		copy(paths[at+1:], paths[at:])
		paths[at] = path
	}
	return ordered
}
