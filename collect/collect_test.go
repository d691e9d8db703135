package collect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/hcm/hierarchy"
	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/report"
)

func build(t *testing.T, groups ...*model.Group) *hierarchy.Hierarchy {
	t.Helper()
	merger := hierarchy.New()
	for _, g := range groups {
		require.NoError(t, merger.Push(g))
	}
	h, err := merger.Build()
	require.NoError(t, err)
	return h
}

func roots(defs []*model.ContentDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.RootPath()
	}
	return out
}

func TestCollectFollowsHierarchyOrder(t *testing.T) {
	late := model.NewGroup("late", "early")
	lateSrc := late.AddProject("p").AddModule("m").AddSource("late.yaml")
	lateSrc.AddNamespace("late", "urn:late")
	lateSrc.AddContent("/late")

	early := model.NewGroup("early")
	module := early.AddProject("p").AddModule("m")
	first := module.AddSource("a.yaml")
	first.AddNamespace("early", "urn:early")
	first.AddNodeType("[early:type] > nt:base")
	first.AddNodeType("[early:other] > early:type")
	first.AddContent("/early")
	second := module.AddSource("b.yaml")
	second.AddContent("/shared")

	defs, err := Collect(build(t, late, early), report.Discard())
	require.NoError(t, err)

	require.Len(t, defs.Namespaces, 2)
	require.Equal(t, "early", defs.Namespaces[0].Prefix)
	require.Equal(t, "late", defs.Namespaces[1].Prefix)
	require.Len(t, defs.NodeTypes, 2)
	require.Equal(t, "[early:type] > nt:base", defs.NodeTypes[0].Value)
	require.Equal(t, []string{"/early", "/shared", "/late"}, roots(defs.Content))
}

func TestCollectRejectsNodeTypesFromSeveralSources(t *testing.T) {
	group := model.NewGroup("g")
	module := group.AddProject("p").AddModule("m")
	module.AddSource("one.yaml").AddNodeType("[a:one] > nt:base")
	module.AddSource("two.yaml").AddNodeType("[a:two] > nt:base")

	_, err := Collect(build(t, group), report.Discard())
	var ambiguous *AmbiguousNodeTypeOrderError
	require.True(t, errors.As(err, &ambiguous))
	require.Equal(t, "g/p/m", ambiguous.Module)
	require.Equal(t, []string{"one.yaml", "two.yaml"}, ambiguous.Sources)
}

func TestCollectAllowsNodeTypesFromSeveralModules(t *testing.T) {
	group := model.NewGroup("g")
	project := group.AddProject("p")
	project.AddModule("a").AddSource("one.yaml").AddNodeType("[a:one] > nt:base")
	project.AddModule("b").AddSource("two.yaml").AddNodeType("[b:two] > nt:base")

	defs, err := Collect(build(t, group), report.Discard())
	require.NoError(t, err)
	require.Len(t, defs.NodeTypes, 2)
}

func TestCollectRejectsDuplicateContentRoot(t *testing.T) {
	group := model.NewGroup("g")
	module := group.AddProject("p").AddModule("m")
	module.AddSource("one.yaml").AddContent("/a/b")
	module.AddSource("two.yaml").AddContent("/a/b[1]")

	_, err := Collect(build(t, group), report.Discard())
	var dup *DuplicateContentRootError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "/a/b", dup.Path)
	require.Equal(t, []string{"one.yaml", "two.yaml"}, dup.Sources)
	require.Contains(t, err.Error(), "g/p/m")
}

func TestCollectAllowsSameRootInDifferentModules(t *testing.T) {
	group := model.NewGroup("g")
	project := group.AddProject("p")
	project.AddModule("a").AddSource("one.yaml").AddContent("/a")
	project.AddModule("b").AddSource("two.yaml").AddContent("/a")

	defs, err := Collect(build(t, group), report.Discard())
	require.NoError(t, err)
	require.Len(t, defs.Content, 2)
}

func TestCollectOrdersAncestorsFirstWithinModule(t *testing.T) {
	group := model.NewGroup("g")
	module := group.AddProject("p").AddModule("m")
	src := module.AddSource("one.yaml")
	src.AddContent("/x")
	src.AddContent("/a/b/c")
	src.AddContent("/y")
	src.AddContent("/a/b")
	module.AddSource("two.yaml").AddContent("/a")

	defs, err := Collect(build(t, group), report.Discard())
	require.NoError(t, err)
	require.Equal(t, []string{"/x", "/a", "/a/b", "/a/b/c", "/y"}, roots(defs.Content))
}

func TestCollectKeepsUnrelatedOrder(t *testing.T) {
	group := model.NewGroup("g")
	src := group.AddProject("p").AddModule("m").AddSource("one.yaml")
	src.AddContent("/z/deep/path")
	src.AddContent("/a")
	src.AddContent("/m/x")

	defs, err := Collect(build(t, group), report.Discard())
	require.NoError(t, err)
	require.Equal(t, []string{"/z/deep/path", "/a", "/m/x"}, roots(defs.Content))
}

func TestCollectNamespaces(t *testing.T) {
	t.Run("redundant declaration warns", func(t *testing.T) {
		group := model.NewGroup("g")
		project := group.AddProject("p")
		project.AddModule("a").AddSource("one.yaml").AddNamespace("ns", "urn:ns")
		project.AddModule("b").AddSource("two.yaml").AddNamespace("ns", "urn:ns")

		recorder := &report.Recorder{}
		defs, err := Collect(build(t, group), recorder)
		require.NoError(t, err)
		require.Len(t, defs.Namespaces, 1)
		require.Equal(t, 1, recorder.Count(report.KindRedundantNamespace))
	})

	t.Run("conflicting uri fails", func(t *testing.T) {
		group := model.NewGroup("g")
		project := group.AddProject("p")
		project.AddModule("a").AddSource("one.yaml").AddNamespace("ns", "urn:one")
		project.AddModule("b").AddSource("two.yaml").AddNamespace("ns", "urn:two")

		_, err := Collect(build(t, group), report.Discard())
		var conflict *NamespaceConflictError
		require.True(t, errors.As(err, &conflict))
		require.Equal(t, "g/p/a", conflict.PriorModule)
		require.Equal(t, "g/p/b", conflict.Module)
	})
}
