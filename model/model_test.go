package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"long spelling", Value{Type: TypeLong, Text: "042"}, LongValue(42), true},
		{"double", Value{Type: TypeDouble, Text: "1.50"}, Value{Type: TypeDouble, Text: "1.5"}, true},
		{"boolean", Value{Type: TypeBoolean, Text: "TRUE"}, BooleanValue(true), true},
		{"decimal scale", Value{Type: TypeDecimal, Text: "10.50"}, Value{Type: TypeDecimal, Text: "10.5"}, true},
		{"date zone", Value{Type: TypeDate, Text: "2024-01-01T10:00:00+01:00"}, Value{Type: TypeDate, Text: "2024-01-01T09:00:00Z"}, true},
		{"string case", StringValue("a"), StringValue("A"), false},
		{"type differs", StringValue("1"), LongValue(1), false},
		{"resource vs literal", ResourceValue(TypeBinary, "x"), Value{Type: TypeBinary, Text: "x"}, false},
		{"same resource", ResourceValue(TypeBinary, "x"), ResourceValue(TypeBinary, "x"), true},
		{"unparsable falls back to text", Value{Type: TypeLong, Text: "abc"}, Value{Type: TypeLong, Text: "abc"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.equal, tc.a.Equal(tc.b))
		})
	}
	require.True(t, ValuesEqual([]Value{LongValue(1), LongValue(2)}, []Value{LongValue(1), LongValue(2)}))
	require.False(t, ValuesEqual([]Value{LongValue(1)}, []Value{LongValue(1), LongValue(2)}))
}

func TestValueValidate(t *testing.T) {
	require.NoError(t, Value{Type: TypeDecimal, Text: "3.14"}.Validate())
	require.NoError(t, Value{Type: TypeName, Text: "anything"}.Validate())
	require.Error(t, Value{Type: TypeLong, Text: "1.5"}.Validate())
	require.Error(t, Value{Type: TypeDate, Text: "yesterday"}.Validate())
	require.Error(t, ResourceValue(TypeBinary, " ").Validate())
}

func TestParseNames(t *testing.T) {
	vt, err := ParseValueType(" Decimal ")
	require.NoError(t, err)
	require.Equal(t, TypeDecimal, vt)
	_, err = ParseValueType("blob")
	require.Error(t, err)

	op, err := ParseOperation("")
	require.NoError(t, err)
	require.Equal(t, OperationReplace, op)
	op, err = ParseOperation("Override")
	require.NoError(t, err)
	require.Equal(t, "override", op.String())
	_, err = ParseOperation("merge")
	require.Error(t, err)
}

func TestPaths(t *testing.T) {
	seg, err := ParseSegment("item[3]")
	require.NoError(t, err)
	require.Equal(t, Segment{Name: "item", Index: 3}, seg)
	require.Equal(t, "item[3]", seg.String())
	require.Equal(t, "item[1]", Segment{Name: "item", Index: 1}.Key())

	for _, bad := range []string{"", "a[0]", "a[b]", "a/b", "[2]"} {
		_, err := ParseSegment(bad)
		require.Error(t, err, bad)
	}

	require.Equal(t, "/a/b[2]", NormalizePath("/a[1]/b[2]/"))
	require.Equal(t, "/", NormalizePath("/"))
	require.Equal(t, "relative", NormalizePath("relative"))
	require.Equal(t, "/a/b", JoinPath("/a", "b"))
	require.Equal(t, "/b", JoinPath("/", "b"))

	require.True(t, IsAncestorPath("/", "/a"))
	require.True(t, IsAncestorPath("/a", "/a/b"))
	require.False(t, IsAncestorPath("/a", "/ab"))
	require.False(t, IsAncestorPath("/a", "/a"))
}

func TestHierarchyConstruction(t *testing.T) {
	group := NewGroup("site", " platform ", "")
	module := group.AddProject("web").AddModule("pages", "base")
	src := module.AddSource("hcm-config/a.yaml")
	def := src.AddContent("/content")
	child := def.Node.AddNode("home")
	prop := child.SetString("title", "Home")

	require.Equal(t, []string{"platform"}, group.After())
	require.Equal(t, "site/web/pages", module.FullName())
	require.Equal(t, "site/web/pages", src.ModuleName())
	require.Same(t, src, def.Source())
	require.Same(t, def, child.Definition())
	require.Same(t, def.Node, child.Parent())
	require.Equal(t, "/content/home", child.Path)
	require.Equal(t, "/content/home/title", prop.Path())
	require.Same(t, src, prop.Source())
	require.True(t, child.HasContent())
}
