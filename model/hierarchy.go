// Package model holds the organizational entities and definitions that feed
// the configuration merge. Values are produced by a loader and consumed by the
// hierarchy, collect and tree packages.
package model

import "strings"

// Orderable is implemented by every entity that takes part in dependency ordering.
type Orderable interface {
	Name() string
	After() []string
}

// Group is the top level organizational entity. A logical group may be
// declared by several physical sources; the merger unions them by name.
type Group struct {
	GroupName  string
	AfterNames []string
	Projects   []*Project
}

// NewGroup creates an empty group.
func NewGroup(name string, after ...string) *Group {
	return &Group{GroupName: name, AfterNames: cleanNames(after)}
}

// Name implements Orderable.
func (g *Group) Name() string { return g.GroupName }

// After implements Orderable.
func (g *Group) After() []string { return g.AfterNames }

// AddProject appends a project to the group and links it back.
func (g *Group) AddProject(name string, after ...string) *Project {
	project := &Project{ProjectName: name, AfterNames: cleanNames(after), Group: g}
	g.Projects = append(g.Projects, project)
	return project
}

// Project groups modules inside a group.
type Project struct {
	ProjectName string
	AfterNames  []string
	Group       *Group
	Modules     []*Module
}

// Name implements Orderable.
func (p *Project) Name() string { return p.ProjectName }

// After implements Orderable.
func (p *Project) After() []string { return p.AfterNames }

// FullName returns group/project.
func (p *Project) FullName() string {
	if p == nil {
		return ""
	}
	if p.Group == nil {
		return p.ProjectName
	}
	return p.Group.GroupName + "/" + p.ProjectName
}

// AddModule appends a module to the project and links it back.
func (p *Project) AddModule(name string, after ...string) *Module {
	module := &Module{ModuleName: name, AfterNames: cleanNames(after), Project: p}
	p.Modules = append(p.Modules, module)
	return module
}

// Module is the leaf organizational entity. Modules own their sources in
// declaration order and are never merged with another declaration.
type Module struct {
	ModuleName string
	AfterNames []string
	Project    *Project
	Sources    []*Source
}

// Name implements Orderable.
func (m *Module) Name() string { return m.ModuleName }

// After implements Orderable.
func (m *Module) After() []string { return m.AfterNames }

// FullName returns group/project/module and is used in diagnostics.
func (m *Module) FullName() string {
	if m == nil {
		return ""
	}
	if m.Project == nil {
		return m.ModuleName
	}
	return m.Project.FullName() + "/" + m.ModuleName
}

// AddSource appends a new source identified by path.
func (m *Module) AddSource(path string) *Source {
	source := &Source{Path: path, Module: m}
	m.Sources = append(m.Sources, source)
	return source
}

func cleanNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
