package config

import (
	"os"
	"path/filepath"
	"strings"

	hcmconfig "github.com/timzifer/hcm/config"
)

// ModuleDirs expands the configured module entries. An entry holding a module
// descriptor is used as is; any other directory is searched for modules.
// Duplicates keep their first position.
func ModuleDirs(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		dirs = append(dirs, path)
	}
	for _, entry := range cfg.Modules {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		abs, err := filepath.Abs(entry)
		if err != nil {
			abs = entry
		}
		if info, err := os.Stat(filepath.Join(abs, hcmconfig.DescriptorFile)); err == nil && !info.IsDir() {
			add(abs)
			continue
		}
		found, err := hcmconfig.Discover(abs)
		if err != nil {
			return nil, err
		}
		for _, dir := range found {
			add(dir)
		}
	}
	return dirs, nil
}
