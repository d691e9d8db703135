// Package engine wires the merge stages together: hierarchy merge, definition
// collection and the tree fold. Every build gets its own merger, builder and
// reporter, so independent builds can run concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/timzifer/hcm/collect"
	"github.com/timzifer/hcm/hierarchy"
	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/report"
	"github.com/timzifer/hcm/telemetry"
	"github.com/timzifer/hcm/tree"
)

// Option configures an Engine.
type Option func(*settings) error

type settings struct {
	logger    zerolog.Logger
	reporter  report.Reporter
	telemetry telemetry.Collector
	workers   int
}

// WithLogger provides a custom logger instance for the engine.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithReporter sets the default warning sink. It must be safe for concurrent
// use when BuildAll runs jobs without their own reporter.
func WithReporter(r report.Reporter) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.reporter = r
		return nil
	}
}

// WithTelemetry installs a metrics collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if collector == nil {
			return errors.New("telemetry collector must not be nil")
		}
		cfg.telemetry = collector
		return nil
	}
}

// WithWorkers limits how many jobs BuildAll runs at once. Zero means no limit.
func WithWorkers(n int) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if n < 0 {
			return fmt.Errorf("worker count must be non-negative")
		}
		cfg.workers = n
		return nil
	}
}

// Engine runs configuration builds.
type Engine struct {
	logger    zerolog.Logger
	reporter  report.Reporter
	telemetry telemetry.Collector
	workers   int
}

// New creates an engine from the provided options.
func New(opts ...Option) (*Engine, error) {
	cfg := settings{
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.reporter == nil {
		cfg.reporter = report.NewLogReporter(cfg.logger)
	}
	return &Engine{
		logger:    cfg.logger,
		reporter:  cfg.reporter,
		telemetry: cfg.telemetry,
		workers:   cfg.workers,
	}, nil
}

// Result is the outcome of one build.
type Result struct {
	Hierarchy  *hierarchy.Hierarchy
	Namespaces []*model.NamespaceDefinition
	NodeTypes  []*model.NodeTypeDefinition
	Root       *tree.Node
	Digest     string
}

// Build merges groups into one configuration tree.
func (e *Engine) Build(ctx context.Context, groups []*model.Group) (*Result, error) {
	return e.build(ctx, groups, e.reporter, e.logger)
}

// Job is one independent build of BuildAll.
type Job struct {
	Name   string
	Groups []*model.Group
	// Reporter overrides the engine reporter for this job.
	Reporter report.Reporter
}

// BuildAll runs independent builds concurrently. Results are returned in job
// order. The first failure cancels the jobs that have not finished yet.
func (e *Engine) BuildAll(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			reporter := job.Reporter
			if reporter == nil {
				reporter = e.reporter
			}
			logger := e.logger.With().Str("job", job.Name).Logger()
			res, err := e.build(gctx, job.Groups, reporter, logger)
			if err != nil {
				return fmt.Errorf("build %s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) build(ctx context.Context, groups []*model.Group, reporter report.Reporter, logger zerolog.Logger) (*Result, error) {
	start := time.Now()
	res, err := e.run(ctx, groups, report.Counting(reporter, e.telemetry), logger)
	e.telemetry.ObserveBuildDuration(time.Since(start))
	if err != nil {
		e.telemetry.IncBuild(telemetry.StatusFailure)
		logger.Debug().Err(err).Msg("build failed")
		return nil, err
	}
	e.telemetry.IncBuild(telemetry.StatusSuccess)
	logger.Debug().
		Str("digest", res.Digest).
		Dur("elapsed", time.Since(start)).
		Msg("build finished")
	return res, nil
}

func (e *Engine) run(ctx context.Context, groups []*model.Group, reporter report.Reporter, logger zerolog.Logger) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	merger := hierarchy.New()
	for _, group := range groups {
		if err := merger.Push(group); err != nil {
			return nil, err
		}
	}
	h, err := merger.Build()
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("groups", len(h.Groups)).Int("modules", len(h.Modules())).Msg("hierarchy resolved")

	defs, err := collect.Collect(h, reporter)
	if err != nil {
		return nil, err
	}
	e.telemetry.ObserveDefinitions(model.KindNamespace.String(), len(defs.Namespaces))
	e.telemetry.ObserveDefinitions(model.KindNodeType.String(), len(defs.NodeTypes))
	e.telemetry.ObserveDefinitions(model.KindContent.String(), len(defs.Content))

	builder := tree.NewBuilder(reporter)
	for _, def := range defs.Content {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := builder.Push(def); err != nil {
			return nil, err
		}
	}
	root, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &Result{
		Hierarchy:  h,
		Namespaces: defs.Namespaces,
		NodeTypes:  defs.NodeTypes,
		Root:       root,
		Digest:     tree.Digest(root),
	}, nil
}
