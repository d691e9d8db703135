// Package reload detects modifications of module sources for watch mode.
package reload

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/timzifer/hcm/config"
)

type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher keeps track of module source files and detects modifications.
type Watcher struct {
	mu    sync.Mutex
	dirs  []string
	files map[string]fileState
}

// NewWatcher builds a watcher over the descriptors and definition files of
// the module directories.
func NewWatcher(dirs ...string) (*Watcher, error) {
	watcher := &Watcher{}
	if err := watcher.Update(dirs...); err != nil {
		return nil, err
	}
	return watcher, nil
}

// Update rebuilds the tracked file list. Without arguments the directories of
// the previous update are rescanned, picking up added files.
func (w *Watcher) Update(dirs ...string) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	if len(dirs) == 0 {
		dirs = w.dirs
	}
	w.mu.Unlock()

	paths := config.SourceFiles(dirs...)
	states := make(map[string]fileState, len(paths))
	for _, path := range uniquePaths(paths) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		states[path] = fileState{modTime: info.ModTime(), size: info.Size()}
	}
	w.mu.Lock()
	w.dirs = append([]string(nil), dirs...)
	w.files = states
	w.mu.Unlock()
	return nil
}

// Check reports the files that changed, vanished or appeared since the last
// snapshot.
func (w *Watcher) Check() ([]string, error) {
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0)
	for path, state := range w.files {
		info, err := os.Stat(path)
		if err != nil {
			changed = append(changed, path)
			continue
		}
		if info.IsDir() {
			continue
		}
		if info.ModTime().After(state.modTime) || info.Size() != state.size {
			changed = append(changed, path)
		}
	}
	for _, path := range config.SourceFiles(w.dirs...) {
		if _, ok := w.files[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		result = append(result, path)
	}
	return result
}
