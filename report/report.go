// Package report carries non-fatal diagnostics out of a merge. A Reporter is
// handed to every build explicitly; there is no package level sink.
package report

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Level classifies a warning.
type Level string

const (
	LevelInfo Level = "info"
	LevelWarn Level = "warn"
)

// Kind identifies the condition that produced a warning.
type Kind string

const (
	KindDeleteMissingNode         Kind = "delete-missing-node"
	KindDeleteMissingProperty     Kind = "delete-missing-property"
	KindDeletedAncestor           Kind = "deleted-ancestor"
	KindRedundantReorder          Kind = "redundant-reorder"
	KindUnnecessaryReorder        Kind = "unnecessary-reorder"
	KindRedundantIgnoreReordered  Kind = "redundant-ignore-reordered"
	KindOverridingIgnoreReordered Kind = "overriding-ignore-reordered"
	KindEquivalentValue           Kind = "equivalent-value"
	KindRedundantNamespace        Kind = "redundant-namespace"
)

// Warning is a single diagnostic tuple.
type Warning struct {
	Level   Level
	Kind    Kind
	Message string
	// Module is the full name of the module whose definition triggered the warning.
	Module string
	Path   string
}

func (w Warning) String() string {
	if w.Module == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s (module %s)", w.Kind, w.Message, w.Module)
}

// Reporter receives warnings synchronously from a build.
type Reporter interface {
	Report(w Warning)
}

// Func adapts a function to the Reporter interface.
type Func func(w Warning)

// Report implements Reporter.
func (f Func) Report(w Warning) { f(w) }

type discard struct{}

func (discard) Report(Warning) {}

// Discard returns a reporter that drops everything.
func Discard() Reporter { return discard{} }

// Recorder keeps every warning it receives, in order.
type Recorder struct {
	mu       sync.Mutex
	warnings []Warning
}

// Report implements Reporter.
func (r *Recorder) Report(w Warning) {
	r.mu.Lock()
	r.warnings = append(r.warnings, w)
	r.mu.Unlock()
}

// Warnings returns a copy of the recorded warnings.
func (r *Recorder) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Warning(nil), r.warnings...)
}

// Count returns how many warnings of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of recorded warnings.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

// LogReporter writes warnings as structured zerolog events.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a reporter backed by logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (l *LogReporter) Report(w Warning) {
	event := l.logger.Warn()
	if w.Level == LevelInfo {
		event = l.logger.Info()
	}
	event = event.Str("kind", string(w.Kind))
	if w.Module != "" {
		event = event.Str("module", w.Module)
	}
	if w.Path != "" {
		event = event.Str("path", w.Path)
	}
	event.Msg(w.Message)
}

// Multi fans a warning out to several reporters in order.
func Multi(reporters ...Reporter) Reporter {
	filtered := make([]Reporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return Func(func(w Warning) {
		for _, r := range filtered {
			r.Report(w)
		}
	})
}

// WarningCounter is satisfied by telemetry collectors.
type WarningCounter interface {
	IncWarning(kind string)
}

// Counting forwards to next and counts every warning by kind.
func Counting(next Reporter, counter WarningCounter) Reporter {
	if next == nil {
		next = Discard()
	}
	if counter == nil {
		return next
	}
	return Func(func(w Warning) {
		counter.IncWarning(string(w.Kind))
		next.Report(w)
	})
}
