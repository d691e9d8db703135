// Package config loads module directories into model values.
//
// A module directory holds a descriptor (hcm-module.yaml) that places the
// module in the group/project/module hierarchy, and an hcm-config directory
// whose YAML and CUE files become the module's sources in lexical path
// order. CUE sources are evaluated and must be concrete.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/hcm/model"
)

const (
	// DescriptorFile names the module descriptor inside a module directory.
	DescriptorFile = "hcm-module.yaml"
	// SourceDir names the directory holding definition sources.
	SourceDir = "hcm-config"
)

// Entity names a group, project or module together with its ordering
// constraints.
type Entity struct {
	Name  string
	After []string
}

// UnmarshalYAML allows entities to be declared either as scalar names or
// structured objects.
func (e *Entity) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return errors.New("entity node is nil")
	}
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return fmt.Errorf("decode entity name: %w", err)
		}
		e.Name = strings.TrimSpace(name)
		return nil
	case yaml.MappingNode:
		type rawEntity struct {
			Name  string    `yaml:"name"`
			After yaml.Node `yaml:"after"`
		}
		var raw rawEntity
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("decode entity: %w", err)
		}
		e.Name = strings.TrimSpace(raw.Name)
		after, err := decodeNames(&raw.After)
		if err != nil {
			return fmt.Errorf("entity %s: %w", e.Name, err)
		}
		e.After = after
		return nil
	default:
		return fmt.Errorf("unsupported entity node kind %d", value.Kind)
	}
}

func decodeNames(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return nil, fmt.Errorf("decode after: %w", err)
		}
		return []string{strings.TrimSpace(name)}, nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode after: %w", err)
		}
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		return names, nil
	default:
		return nil, fmt.Errorf("after must be a name or a list of names")
	}
}

// Descriptor is the decoded content of a module descriptor.
type Descriptor struct {
	Group   Entity `yaml:"group"`
	Project Entity `yaml:"project"`
	Module  Entity `yaml:"module"`

	// Dir is the absolute module directory.
	Dir string `yaml:"-"`
}

// LoadDescriptor reads and validates the descriptor of the module in dir.
func LoadDescriptor(dir string) (*Descriptor, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve module path: %w", err)
	}
	path := filepath.Join(abs, DescriptorFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module descriptor: %w", err)
	}
	if err := validateDescriptor(path, raw); err != nil {
		return nil, err
	}
	var desc Descriptor
	if err := yaml.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("unmarshal module descriptor %s: %w", path, err)
	}
	desc.Dir = abs
	return &desc, nil
}

// LoadModule loads the module in dir as a group holding one project, one
// module and one source per definition file.
func LoadModule(dir string) (*model.Group, error) {
	desc, err := LoadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	group := model.NewGroup(desc.Group.Name, desc.Group.After...)
	module := group.AddProject(desc.Project.Name, desc.Project.After...).AddModule(desc.Module.Name, desc.Module.After...)

	files, err := definitionFiles(desc.Dir)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		rel, err := filepath.Rel(desc.Dir, file)
		if err != nil {
			rel = file
		}
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", file, err)
		}
		src := module.AddSource(filepath.ToSlash(rel))
		if strings.EqualFold(filepath.Ext(file), ".cue") {
			if raw, err = evaluateCUE(src.Path, raw); err != nil {
				return nil, err
			}
		}
		if err := ParseSource(src, raw); err != nil {
			return nil, err
		}
	}
	return group, nil
}

// LoadModules loads every module directory in order.
func LoadModules(dirs ...string) ([]*model.Group, error) {
	groups := make([]*model.Group, 0, len(dirs))
	for _, dir := range dirs {
		group, err := LoadModule(dir)
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", dir, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Discover returns the module directories below root in lexical order. A
// directory is a module when it contains a descriptor; the search does not
// descend into modules.
func Discover(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	var dirs []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, err := os.Stat(filepath.Join(path, DescriptorFile)); err == nil {
			dirs = append(dirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover modules in %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// SourceFiles returns the descriptor and definition files of the module
// directories. Missing directories are skipped.
func SourceFiles(dirs ...string) []string {
	files := make(map[string]struct{})
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		descriptor := filepath.Join(abs, DescriptorFile)
		if info, err := os.Stat(descriptor); err == nil && !info.IsDir() {
			files[descriptor] = struct{}{}
		}
		defs, err := definitionFiles(abs)
		if err != nil {
			continue
		}
		for _, file := range defs {
			files[file] = struct{}{}
		}
	}
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func definitionFiles(moduleDir string) ([]string, error) {
	root := filepath.Join(moduleDir, SourceDir)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
