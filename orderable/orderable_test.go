package orderable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/timzifer/hcm/model"
)

func names(groups []*model.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name()
	}
	return out
}

func TestSortOrdersDependenciesFirst(t *testing.T) {
	c1 := model.NewGroup("c1", "c2")
	c2 := model.NewGroup("c2")
	c3 := model.NewGroup("c3", "c2", "c1")

	sorted, err := Sort("groups", []*model.Group{c1, c2, c3})
	require.NoError(t, err)
	require.Equal(t, []string{"c2", "c1", "c3"}, names(sorted))
}

func TestSortFallsBackToNameOrder(t *testing.T) {
	sorted, err := Sort("groups", []*model.Group{
		model.NewGroup("zeta"),
		model.NewGroup("alpha"),
		model.NewGroup("mid"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, names(sorted))
}

func TestSortDoesNotModifyInput(t *testing.T) {
	input := []*model.Group{model.NewGroup("b"), model.NewGroup("a")}
	_, err := Sort("groups", input)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, names(input))
}

func TestSortEmpty(t *testing.T) {
	sorted, err := Sort[*model.Group]("groups", nil)
	require.NoError(t, err)
	require.Empty(t, sorted)
}

func TestVerifyMissingDependency(t *testing.T) {
	err := Verify("groups", []*model.Group{
		model.NewGroup("a", "b"),
		model.NewGroup("c", "missing"),
		model.NewGroup("b"),
	})
	var missing *MissingDependencyError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "c", missing.Entity)
	require.Equal(t, "missing", missing.Missing)
	require.Contains(t, err.Error(), `"c" depends on "missing"`)
}

func TestVerifySelfReference(t *testing.T) {
	err := Verify("groups", []*model.Group{model.NewGroup("a", "a")})
	var cycle *CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	require.Equal(t, []string{"a", "a"}, cycle.Cycle)
}

func TestVerifyCycle(t *testing.T) {
	err := Verify("groups", []*model.Group{
		model.NewGroup("a", "b"),
		model.NewGroup("b", "c"),
		model.NewGroup("c", "a"),
		model.NewGroup("d"),
	})
	var cycle *CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	require.Equal(t, []string{"a", "b", "c", "a"}, cycle.Cycle)
	require.Contains(t, err.Error(), "a -> b -> c -> a")
}

func TestVerifyOverlappingCyclesTerminate(t *testing.T) {
	// Every node depends on every other node.
	var groups []*model.Group
	for i := 0; i < 12; i++ {
		var after []string
		for j := 0; j < 12; j++ {
			if j != i {
				after = append(after, fmt.Sprintf("n%02d", j))
			}
		}
		groups = append(groups, model.NewGroup(fmt.Sprintf("n%02d", i), after...))
	}
	_, err := Sort("groups", groups)
	var cycle *CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	require.Equal(t, cycle.Cycle[0], cycle.Cycle[len(cycle.Cycle)-1])
}

func TestVerifyDuplicateName(t *testing.T) {
	err := Verify("groups", []*model.Group{model.NewGroup("a"), model.NewGroup("a")})
	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "a", dup.Name)
}

func TestSortIsIndependentOfInputOrder(t *testing.T) {
	base := []*model.Group{
		model.NewGroup("a"),
		model.NewGroup("b", "a"),
		model.NewGroup("c"),
		model.NewGroup("d", "c", "b"),
		model.NewGroup("e", "a"),
		model.NewGroup("f"),
	}
	expected, err := Sort("groups", base)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		shuffled := rapid.Permutation(base).Draw(t, "order")
		sorted, err := Sort("groups", shuffled)
		if err != nil {
			t.Fatalf("sort: %v", err)
		}
		if fmt.Sprint(names(sorted)) != fmt.Sprint(names(expected)) {
			t.Fatalf("expected %v, got %v", names(expected), names(sorted))
		}
	})
}

func TestSortPlacesEntitiesAfterAllDependencies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(t, "n")
		groups := make([]*model.Group, n)
		for i := 0; i < n; i++ {
			var after []string
			// Only depend on lower indices so the graph stays acyclic.
			for j := 0; j < i; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("edge-%d-%d", i, j)) {
					after = append(after, fmt.Sprintf("g%d", j))
				}
			}
			groups[i] = model.NewGroup(fmt.Sprintf("g%d", i), after...)
		}
		sorted, err := Sort("groups", groups)
		if err != nil {
			t.Fatalf("sort: %v", err)
		}
		position := make(map[string]int, len(sorted))
		for i, g := range sorted {
			position[g.Name()] = i
		}
		for _, g := range sorted {
			for _, dep := range g.After() {
				if position[dep] >= position[g.Name()] {
					t.Fatalf("%s sorted before its dependency %s", g.Name(), dep)
				}
			}
		}
	})
}
