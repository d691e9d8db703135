package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/orderable"
	"github.com/timzifer/hcm/report"
	"github.com/timzifer/hcm/telemetry"
	"github.com/timzifer/hcm/tree"
)

func siteGroups(title string) []*model.Group {
	platform := model.NewGroup("platform")
	core := platform.AddProject("core").AddModule("base").AddSource("base.yaml")
	core.AddNamespace("hcm", "urn:hcm")
	core.AddNodeType("[hcm:document] > nt:base")
	root := core.AddContent("/content")
	root.Node.AddProperty(model.PrimaryTypeProperty, model.KindSingle, model.TypeName, model.NameValue("nt:unstructured"))
	for _, name := range []string{"b", "c", "d"} {
		root.Node.AddNode(name)
	}

	site := model.NewGroup("site", "platform")
	src := site.AddProject("web").AddModule("pages").AddSource("pages.yaml")
	page := src.AddContent("/content/d")
	page.Node.SetOrderBefore("b")
	page.Node.SetString("title", title)

	return []*model.Group{site, platform}
}

func TestBuildRunsAllStages(t *testing.T) {
	recorder := &report.Recorder{}
	engine, err := New(WithReporter(recorder), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	res, err := engine.Build(context.Background(), siteGroups("Home"))
	require.NoError(t, err)
	require.Len(t, res.Namespaces, 1)
	require.Len(t, res.NodeTypes, 1)
	require.Equal(t, []string{"d[1]", "b[1]", "c[1]"}, res.Root.Lookup("/content").ChildKeys())
	require.Equal(t, "Home", res.Root.Lookup("/content/d").Property("title").Value().Text)
	require.Equal(t, tree.Digest(res.Root), res.Digest)
	require.Zero(t, recorder.Len())
}

func TestBuildPropagatesTypedErrors(t *testing.T) {
	engine, err := New(WithReporter(report.Discard()))
	require.NoError(t, err)

	_, err = engine.Build(context.Background(), []*model.Group{model.NewGroup("a", "missing")})
	var missing *orderable.MissingDependencyError
	require.True(t, errors.As(err, &missing))
}

func TestBuildCountsWarningsAndBuilds(t *testing.T) {
	collector := &countingCollector{}
	engine, err := New(WithReporter(report.Discard()), WithTelemetry(collector))
	require.NoError(t, err)

	groups := siteGroups("Home")
	extra := groups[1].Projects[0].Modules[0].AddSource("extra.yaml").AddContent("/content/ghost")
	extra.Node.Delete = model.DeleteNode

	_, err = engine.Build(context.Background(), groups)
	require.NoError(t, err)
	require.Equal(t, 1, collector.warnings[string(report.KindDeleteMissingNode)])
	require.Equal(t, 1, collector.builds[telemetry.StatusSuccess])
	require.Equal(t, 3, collector.definitions["content"])
}

func TestBuildAllRunsIndependentJobs(t *testing.T) {
	engine, err := New(WithReporter(report.Discard()), WithWorkers(2))
	require.NoError(t, err)

	var jobs []Job
	for i := 0; i < 5; i++ {
		jobs = append(jobs, Job{Name: fmt.Sprintf("site-%d", i), Groups: siteGroups(fmt.Sprintf("Home %d", i)), Reporter: &report.Recorder{}})
	}
	results, err := engine.BuildAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		require.Equal(t, fmt.Sprintf("Home %d", i), res.Root.Lookup("/content/d").Property("title").Value().Text)
	}
	require.NotEqual(t, results[0].Digest, results[1].Digest)
}

func TestBuildAllReportsFailingJob(t *testing.T) {
	engine, err := New(WithReporter(report.Discard()))
	require.NoError(t, err)

	jobs := []Job{
		{Name: "ok", Groups: siteGroups("Home")},
		{Name: "broken", Groups: []*model.Group{model.NewGroup("a", "a")}},
	}
	_, err = engine.BuildAll(context.Background(), jobs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "build broken")
	var cycle *orderable.CircularDependencyError
	require.True(t, errors.As(err, &cycle))
}

func TestBuildHonoursCancelledContext(t *testing.T) {
	engine, err := New(WithReporter(report.Discard()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Build(ctx, siteGroups("Home"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidate(t *testing.T) {
	_, err := New(WithTelemetry(nil))
	require.Error(t, err)
	_, err = New(WithWorkers(-1))
	require.Error(t, err)
}

func TestPrometheusTelemetry(t *testing.T) {
	collector, err := telemetry.NewPrometheusCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	engine, err := New(WithReporter(report.Discard()), WithTelemetry(collector))
	require.NoError(t, err)
	_, err = engine.Build(context.Background(), siteGroups("Home"))
	require.NoError(t, err)
}

type countingCollector struct {
	builds      map[string]int
	warnings    map[string]int
	definitions map[string]int
}

func (c *countingCollector) IncBuild(status string) {
	if c.builds == nil {
		c.builds = make(map[string]int)
	}
	c.builds[status]++
}

func (c *countingCollector) ObserveBuildDuration(time.Duration) {}

func (c *countingCollector) IncWarning(kind string) {
	if c.warnings == nil {
		c.warnings = make(map[string]int)
	}
	c.warnings[kind]++
}

func (c *countingCollector) ObserveDefinitions(category string, count int) {
	if c.definitions == nil {
		c.definitions = make(map[string]int)
	}
	c.definitions[category] = count
}

func (c *countingCollector) IncHotReload(string) {}
