package reload

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/timzifer/hcm/config"
)

func TestUniquePathsFiltersDuplicatesAndEmptyValues(t *testing.T) {
	paths := []string{"", "/tmp/a", "/tmp/b", "/tmp/a", "\t", "/tmp/c", "/tmp/b"}
	got := uniquePaths(paths)
	want := []string{"/tmp/a", "/tmp/b", "/tmp/c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("uniquePaths() = %v, want %v", got, want)
	}
}

func TestWatcherUpdateTracksModuleFiles(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, config.DescriptorFile)
	source := filepath.Join(dir, config.SourceDir, "content.yaml")
	writeFile(t, descriptor, "group: g\nproject: p\nmodule: m\n")
	writeFile(t, source, "definitions: {}\n")
	writeFile(t, filepath.Join(dir, config.SourceDir, "notes.txt"), "ignored")

	var watcher Watcher
	if err := watcher.Update(dir); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(watcher.files) != 2 {
		t.Fatalf("expected 2 tracked files, got %d", len(watcher.files))
	}
	if _, ok := watcher.files[descriptor]; !ok {
		t.Fatalf("descriptor %s not tracked", descriptor)
	}
	if _, ok := watcher.files[source]; !ok {
		t.Fatalf("source %s not tracked", source)
	}
}

func TestWatcherUpdateSkipsMissingDirectories(t *testing.T) {
	var watcher Watcher
	if err := watcher.Update(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(watcher.files) != 0 {
		t.Fatalf("expected 0 tracked files, got %d", len(watcher.files))
	}
}

func TestWatcherCheckDetectsChangesRemovalsAndAdditions(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, config.SourceDir, "a.yaml")
	fileB := filepath.Join(dir, config.SourceDir, "b.yaml")
	fileC := filepath.Join(dir, config.SourceDir, "c.yaml")
	writeFile(t, filepath.Join(dir, config.DescriptorFile), "group: g\nproject: p\nmodule: m\n")
	writeFile(t, fileA, "first")
	writeFile(t, fileB, "second")

	watcher, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if changed, err := watcher.Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	} else if len(changed) != 0 {
		t.Fatalf("expected no changes on first check, got %v", changed)
	}

	time.Sleep(10 * time.Millisecond)
	writeFile(t, fileA, "first-UPDATED")
	if err := os.Remove(fileB); err != nil {
		t.Fatalf("Remove(%s) error = %v", fileB, err)
	}
	writeFile(t, fileC, "third")

	changed, err := watcher.Check()
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	expected := []string{fileA, fileB, fileC}
	if !reflect.DeepEqual(changed, expected) {
		t.Fatalf("Check() = %v, want %v", changed, expected)
	}

	if err := watcher.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if changed, err := watcher.Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	} else if len(changed) != 0 {
		t.Fatalf("expected no changes after update, got %v", changed)
	}
}

func TestWatcherHandlesNilReceiver(t *testing.T) {
	var watcher *Watcher
	if err := watcher.Update(t.TempDir()); err != nil {
		t.Fatalf("nil watcher Update() error = %v", err)
	}
	if changed, err := watcher.Check(); err != nil {
		t.Fatalf("nil watcher Check() error = %v", err)
	} else if changed != nil {
		t.Fatalf("expected nil slice from nil watcher, got %v", changed)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error = %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}
