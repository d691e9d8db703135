// Package query selects nodes of a merged tree with expr expressions.
//
// Every node is evaluated against an environment with the variables path,
// name, index, depth, primaryType, mixins, children, module and props. props
// maps property names to typed values: longs become int64, doubles and
// decimals float64, booleans bool, everything else a string. List
// properties become lists.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"

	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/tree"
)

// Query is a compiled node predicate.
type Query struct {
	source  string
	program *vm.Program
}

// Compile parses a boolean expression.
func Compile(expression string) (*Query, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, fmt.Errorf("query expression must not be empty")
	}
	program, err := expr.Compile(trimmed, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", trimmed, err)
	}
	return &Query{source: trimmed, program: program}, nil
}

func (q *Query) String() string { return q.source }

// Match evaluates the query against a single node.
func (q *Query) Match(n *tree.Node) (bool, error) {
	return q.match(n, depthOf(n))
}

func (q *Query) match(n *tree.Node, depth int) (bool, error) {
	out, err := vm.Run(q.program, Env(n, depth))
	if err != nil {
		return false, fmt.Errorf("evaluate query on %s: %w", n.Path(), err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("evaluate query on %s: result %v is not a boolean", n.Path(), out)
	}
	return matched, nil
}

// Select returns the nodes below and including root that match, in tree
// order.
func (q *Query) Select(root *tree.Node) ([]*tree.Node, error) {
	var (
		matches []*tree.Node
		walkErr error
	)
	base := depthOf(root)
	var visit func(n *tree.Node, depth int)
	visit = func(n *tree.Node, depth int) {
		if walkErr != nil {
			return
		}
		ok, err := q.match(n, depth)
		if err != nil {
			walkErr = err
			return
		}
		if ok {
			matches = append(matches, n)
		}
		for _, child := range n.Children() {
			visit(child, depth+1)
		}
	}
	visit(root, base)
	if walkErr != nil {
		return nil, walkErr
	}
	return matches, nil
}

// Env builds the evaluation environment of a node.
func Env(n *tree.Node, depth int) map[string]interface{} {
	props := make(map[string]interface{})
	for _, p := range n.Properties() {
		props[p.Name()] = propertyValue(p)
	}
	mixins := []interface{}{}
	if p := n.Property(model.MixinTypesProperty); p != nil {
		for _, v := range p.Values() {
			mixins = append(mixins, v.Text)
		}
	}
	primaryType := ""
	if p := n.Property(model.PrimaryTypeProperty); p != nil {
		primaryType = p.Value().Text
	}
	module := ""
	if src := n.Source(); src != nil {
		module = src.ModuleName()
	}
	return map[string]interface{}{
		"path":        n.Path(),
		"name":        n.Name(),
		"index":       n.Index(),
		"depth":       depth,
		"primaryType": primaryType,
		"mixins":      mixins,
		"children":    len(n.Children()),
		"module":      module,
		"props":       props,
	}
}

func propertyValue(p *tree.Property) interface{} {
	if p.Kind() == model.KindSingle {
		return scalarValue(p.Value())
	}
	values := p.Values()
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = scalarValue(v)
	}
	return out
}

func scalarValue(v model.Value) interface{} {
	if v.Resource {
		return v.Text
	}
	text := strings.TrimSpace(v.Text)
	switch v.Type {
	case model.TypeLong:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	case model.TypeDouble:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case model.TypeDecimal:
		if d, err := decimal.NewFromString(text); err == nil {
			return d.InexactFloat64()
		}
	case model.TypeBoolean:
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	}
	return v.Text
}

func depthOf(n *tree.Node) int {
	if n.IsRoot() {
		return 0
	}
	return strings.Count(n.Path(), "/")
}
