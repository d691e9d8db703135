// Package hierarchy consolidates groups, projects and modules declared by
// independent sources into one dependency-sorted structure.
package hierarchy

import (
	"fmt"
	"sort"

	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/orderable"
)

// DuplicateModuleError reports a module declared twice under one project.
type DuplicateModuleError struct {
	Group   string
	Project string
	Module  string
	// Sources lists the first source of each declaration when known.
	Sources []string
}

func (e *DuplicateModuleError) Error() string {
	msg := fmt.Sprintf("module %q is declared more than once in project %s/%s", e.Module, e.Group, e.Project)
	if len(e.Sources) > 0 {
		msg += fmt.Sprintf(" (sources: %v)", e.Sources)
	}
	return msg
}

// Hierarchy is the merged and sorted result of a Merger.
type Hierarchy struct {
	Groups []*model.Group
}

// Modules returns every module in final processing order.
func (h *Hierarchy) Modules() []*model.Module {
	if h == nil {
		return nil
	}
	var modules []*model.Module
	for _, group := range h.Groups {
		for _, project := range group.Projects {
			modules = append(modules, project.Modules...)
		}
	}
	return modules
}

// Merger accumulates groups. The zero value is not usable; call New.
type Merger struct {
	groups map[string]*mergedGroup
}

type mergedGroup struct {
	group    *model.Group
	after    map[string]struct{}
	projects map[string]*mergedProject
}

type mergedProject struct {
	project *model.Project
	after   map[string]struct{}
	modules map[string]*model.Module
}

// New creates an empty merger.
func New() *Merger {
	return &Merger{groups: make(map[string]*mergedGroup)}
}

// Push merges group into the accumulated state. Groups and projects with an
// existing name are unioned; a module whose name already exists under the same
// project is rejected. The pushed values are not modified.
func (m *Merger) Push(group *model.Group) error {
	if group == nil {
		return nil
	}
	target, ok := m.groups[group.Name()]
	if !ok {
		target = &mergedGroup{
			group:    &model.Group{GroupName: group.Name()},
			after:    make(map[string]struct{}),
			projects: make(map[string]*mergedProject),
		}
		m.groups[group.Name()] = target
	}
	addNames(target.after, group.After())

	for _, project := range group.Projects {
		if err := target.pushProject(project); err != nil {
			return err
		}
	}
	return nil
}

func (g *mergedGroup) pushProject(project *model.Project) error {
	target, ok := g.projects[project.Name()]
	if !ok {
		target = &mergedProject{
			project: &model.Project{ProjectName: project.Name(), Group: g.group},
			after:   make(map[string]struct{}),
			modules: make(map[string]*model.Module),
		}
		g.projects[project.Name()] = target
	}
	addNames(target.after, project.After())

	for _, module := range project.Modules {
		if existing, dup := target.modules[module.Name()]; dup {
			return &DuplicateModuleError{
				Group:   g.group.Name(),
				Project: project.Name(),
				Module:  module.Name(),
				Sources: firstSources(existing, module),
			}
		}
		target.modules[module.Name()] = module
	}
	return nil
}

// Build sorts groups, then the projects of each group, then the modules of
// each project. Dependency errors from any level abort the build.
func (m *Merger) Build() (*Hierarchy, error) {
	groups := make([]*model.Group, 0, len(m.groups))
	for _, groupName := range sortedKeys(m.groups) {
		mg := m.groups[groupName]
		mg.group.AfterNames = sortedKeys(mg.after)
		mg.group.Projects = mg.group.Projects[:0]

		for _, projectName := range sortedKeys(mg.projects) {
			mp := mg.projects[projectName]
			mp.project.AfterNames = sortedKeys(mp.after)
			modules := make([]*model.Module, 0, len(mp.modules))
			for _, module := range mp.modules {
				modules = append(modules, module)
			}
			sortedModules, err := orderable.Sort(fmt.Sprintf("modules of project %q", mp.project.FullName()), modules)
			if err != nil {
				return nil, err
			}
			mp.project.Modules = sortedModules
			mg.group.Projects = append(mg.group.Projects, mp.project)
		}

		sortedProjects, err := orderable.Sort(fmt.Sprintf("projects of group %q", mg.group.Name()), mg.group.Projects)
		if err != nil {
			return nil, err
		}
		mg.group.Projects = sortedProjects
		groups = append(groups, mg.group)
	}

	sortedGroups, err := orderable.Sort("groups", groups)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{Groups: sortedGroups}, nil
}

func addNames(set map[string]struct{}, names []string) {
	for _, name := range names {
		set[name] = struct{}{}
	}
}

func sortedKeys[V any](set map[string]V) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func firstSources(modules ...*model.Module) []string {
	var out []string
	for _, module := range modules {
		if len(module.Sources) > 0 {
			out = append(out, module.Sources[0].Path)
		}
	}
	return out
}
