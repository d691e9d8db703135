package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/tree"
)

func sampleTree(t *testing.T) *tree.Node {
	t.Helper()
	src := model.NewGroup("g").AddProject("p").AddModule("m").AddSource("content.yaml")
	def := src.AddContent("/content")
	def.Node.AddProperty(model.PrimaryTypeProperty, model.KindSingle, model.TypeName, model.NameValue("nt:folder"))
	a := def.Node.AddNode("article")
	a.SetString("title", "Hello")
	a.AddProperty("count", model.KindSingle, model.TypeLong, model.LongValue(5))
	a.AddProperty(model.MixinTypesProperty, model.KindList, model.TypeName, model.NameValue("mix:tagged"))
	a.AddProperty("tags", model.KindList, model.TypeString, model.StringValue("x"), model.StringValue("y"))
	b := def.Node.AddNode("banner")
	b.AddProperty("hidden", model.KindSingle, model.TypeBoolean, model.BooleanValue(true))
	b.AddProperty("count", model.KindSingle, model.TypeLong, model.LongValue(1))

	builder := tree.NewBuilder(nil)
	require.NoError(t, builder.Push(def))
	root, err := builder.Build()
	require.NoError(t, err)
	return root
}

func paths(nodes []*tree.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Path())
	}
	return out
}

func TestSelect(t *testing.T) {
	root := sampleTree(t)
	cases := []struct {
		expression string
		want       []string
	}{
		{`depth == 2`, []string{"/content/article", "/content/banner"}},
		{`"count" in props && props.count > 3`, []string{"/content/article"}},
		{`"mix:tagged" in mixins`, []string{"/content/article"}},
		{`props.hidden == true`, []string{"/content/banner"}},
		{`primaryType == "nt:folder"`, []string{"/content"}},
		{`children > 0`, []string{"/", "/content"}},
		{`name startsWith "ban" && module == "g/p/m"`, []string{"/content/banner"}},
		{`"y" in (props.tags ?? [])`, []string{"/content/article"}},
	}
	for _, tc := range cases {
		t.Run(tc.expression, func(t *testing.T) {
			q, err := Compile(tc.expression)
			require.NoError(t, err)
			matches, err := q.Select(root)
			require.NoError(t, err)
			require.Equal(t, tc.want, paths(matches))
		})
	}
}

func TestSelectSubtreeKeepsAbsoluteDepth(t *testing.T) {
	root := sampleTree(t)
	q, err := Compile(`depth == 2`)
	require.NoError(t, err)
	matches, err := q.Select(root.Lookup("/content"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestMatch(t *testing.T) {
	root := sampleTree(t)
	q, err := Compile(`index == 1 && path == "/content/article"`)
	require.NoError(t, err)
	require.Equal(t, `index == 1 && path == "/content/article"`, q.String())

	ok, err := q.Match(root.Lookup("/content/article"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.Match(root.Lookup("/content/banner"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnvTypesValues(t *testing.T) {
	root := sampleTree(t)
	env := Env(root.Lookup("/content/article"), 2)
	props := env["props"].(map[string]interface{})
	require.Equal(t, int64(5), props["count"])
	require.Equal(t, "Hello", props["title"])
	require.Equal(t, []interface{}{"x", "y"}, props["tags"])
	require.Equal(t, []interface{}{"mix:tagged"}, env["mixins"])
	require.Equal(t, "", env["primaryType"])

	banner := Env(root.Lookup("/content/banner"), 2)
	require.Equal(t, true, banner["props"].(map[string]interface{})["hidden"])
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("   ")
	require.Error(t, err)

	_, err = Compile("depth ==")
	require.Error(t, err)

	_, err = Compile(`1 + 2`)
	require.Error(t, err)
}
