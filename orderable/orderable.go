// Package orderable resolves "after" constraints between sibling entities.
//
// Sort produces a total order that depends only on the set of entities, not
// on the order they were passed in: entities are ranked by the length of the
// longest dependency chain below them and ties are broken by name.
package orderable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/timzifer/hcm/model"
)

// MissingDependencyError reports an "after" name that matches no sibling.
type MissingDependencyError struct {
	Scope   string
	Entity  string
	Missing string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: %q depends on %q, which does not exist", e.Scope, e.Entity, e.Missing)
}

// CircularDependencyError reports a dependency cycle. Cycle starts and ends
// with the same name.
type CircularDependencyError struct {
	Scope string
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s: circular dependency %s", e.Scope, strings.Join(e.Cycle, " -> "))
}

// DuplicateNameError reports two entities with the same name in one call.
type DuplicateNameError struct {
	Scope string
	Name  string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s: duplicate name %q", e.Scope, e.Name)
}

// Verify checks that every dependency exists and that there are no cycles.
// scope describes the sibling set in error messages, e.g. `projects of group "core"`.
func Verify[T model.Orderable](scope string, items []T) error {
	_, err := index(scope, items)
	if err != nil {
		return err
	}
	return detectCycles(scope, items)
}

// Sort verifies items and returns them in dependency order. The input slice
// is not modified.
func Sort[T model.Orderable](scope string, items []T) ([]T, error) {
	if err := Verify(scope, items); err != nil {
		return nil, err
	}
	byName, _ := index(scope, items)

	ranks := make(map[string]int, len(items))
	var rank func(name string) int
	rank = func(name string) int {
		if r, ok := ranks[name]; ok {
			return r
		}
		r := 0
		for _, dep := range byName[name].After() {
			if depRank := rank(dep) + 1; depRank > r {
				r = depRank
			}
		}
		ranks[name] = r
		return r
	}

	sorted := append([]T(nil), items...)
	for _, item := range sorted {
		rank(item.Name())
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := ranks[sorted[i].Name()], ranks[sorted[j].Name()]
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return sorted, nil
}

func index[T model.Orderable](scope string, items []T) (map[string]T, error) {
	byName := make(map[string]T, len(items))
	for _, item := range items {
		if _, exists := byName[item.Name()]; exists {
			return nil, &DuplicateNameError{Scope: scope, Name: item.Name()}
		}
		byName[item.Name()] = item
	}
	for _, item := range sortedByName(items) {
		for _, dep := range sortedNames(item.After()) {
			if _, ok := byName[dep]; !ok {
				return nil, &MissingDependencyError{Scope: scope, Entity: item.Name(), Missing: dep}
			}
		}
	}
	return byName, nil
}

func detectCycles[T model.Orderable](scope string, items []T) error {
	byName := make(map[string]T, len(items))
	for _, item := range items {
		byName[item.Name()] = item
	}

	// permanent: fully explored, known to be acyclic below.
	// stack: names on the current DFS path, in order.
	permanent := make(map[string]bool, len(items))
	onStack := make(map[string]bool)
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		if permanent[name] {
			return nil
		}
		if onStack[name] {
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			cycle := append(append([]string(nil), stack[start:]...), name)
			return &CircularDependencyError{Scope: scope, Cycle: cycle}
		}
		onStack[name] = true
		stack = append(stack, name)
		for _, dep := range sortedNames(byName[name].After()) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, name)
		permanent[name] = true
		return nil
	}

	for _, item := range sortedByName(items) {
		if err := visit(item.Name()); err != nil {
			return err
		}
	}
	return nil
}

func sortedByName[T model.Orderable](items []T) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func sortedNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
