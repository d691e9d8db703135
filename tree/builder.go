package tree

import (
	"errors"
	"fmt"

	"github.com/timzifer/hcm/model"
	"github.com/timzifer/hcm/report"
)

// Builder folds content definitions into a tree. Definitions must be pushed
// in the order produced by the collector. A Builder is not safe for
// concurrent use.
type Builder struct {
	root     *Node
	reporter report.Reporter
	deleted  map[string]bool
	sealed   bool
	err      error
}

// NewBuilder creates an empty builder that reports warnings to r.
func NewBuilder(r report.Reporter) *Builder {
	if r == nil {
		r = report.Discard()
	}
	return &Builder{
		root:     newRoot(),
		reporter: r,
		deleted:  make(map[string]bool),
	}
}

// Push applies one content definition. After a failed Push the builder keeps
// returning that error.
func (b *Builder) Push(def *model.ContentDefinition) error {
	if b.sealed {
		return ErrSealed
	}
	if b.err != nil {
		return b.err
	}
	if err := b.push(def); err != nil {
		b.err = err
		return err
	}
	return nil
}

// Build seals the builder and returns the root of the merged tree.
func (b *Builder) Build() (*Node, error) {
	b.sealed = true
	if b.err != nil {
		return nil, b.err
	}
	return b.root, nil
}

func (b *Builder) push(def *model.ContentDefinition) error {
	if def == nil || def.Node == nil {
		return errors.New("tree: content definition without node")
	}
	source := def.Source()
	node := def.Node

	segments, err := model.SplitPath(node.Path)
	if err != nil {
		return &InvalidPathError{Path: node.Path, Module: source.ModuleName(), Err: err}
	}
	if len(segments) == 0 {
		if node.Delete != model.DeleteNone {
			return &RootDeletionError{Module: source.ModuleName()}
		}
		return b.mergeNode(nil, b.root, node)
	}

	parent := b.root
	for i, seg := range segments[:len(segments)-1] {
		next := parent.child(seg)
		if next == nil {
			missing := model.FormatPath(segments[:i+1])
			if b.deleted[missing] {
				b.warn(report.KindDeletedAncestor, source, model.FormatPath(segments),
					"skipping definition of %s: ancestor %s was deleted", model.FormatPath(segments), missing)
				return nil
			}
			if node.Delete == model.DeleteNode && !node.HasContent() {
				b.warn(report.KindDeleteMissingNode, source, model.FormatPath(segments),
					"cannot delete %s: ancestor %s does not exist", model.FormatPath(segments), missing)
				return nil
			}
			return &UnreachableRootError{
				Path:            model.FormatPath(segments),
				ClosestAncestor: parent.path,
				Module:          source.ModuleName(),
			}
		}
		parent = next
	}
	return b.applyNode(parent, segments[len(segments)-1], node)
}

// applyNode resolves, deletes or creates the child seg of parent and merges
// def into it.
func (b *Builder) applyNode(parent *Node, seg model.Segment, def *model.DefinitionNode) error {
	source := def.Source()
	path := model.JoinPath(parent.path, seg.String())
	existing := parent.child(seg)

	switch def.Delete {
	case model.DeleteNode:
		if def.HasContent() {
			return &DeleteAndMergeConflictError{Path: path, Module: source.ModuleName()}
		}
		if existing == nil {
			b.warn(report.KindDeleteMissingNode, source, path, "cannot delete %s: node does not exist", path)
			return nil
		}
		b.markDeleted(existing)
		for _, moved := range parent.removeChild(existing) {
			b.forgetDeleted(moved.path)
		}
		return nil
	case model.DeleteThenMerge:
		if existing != nil {
			for _, child := range existing.children {
				b.markDeleted(child)
			}
			existing.reset(source)
		}
	}

	if existing == nil {
		if seg.Index > 1 {
			prev := model.Segment{Name: seg.Name, Index: seg.Index - 1}
			if parent.child(prev) == nil {
				return &MissingSiblingError{
					Path:    path,
					Missing: model.JoinPath(parent.path, prev.String()),
					Module:  source.ModuleName(),
				}
			}
		}
		existing = parent.addChild(seg, source)
		delete(b.deleted, existing.path)
	}
	return b.mergeNode(parent, existing, def)
}

func (b *Builder) markDeleted(n *Node) {
	n.Walk(func(cur *Node) bool {
		b.deleted[cur.path] = true
		return true
	})
}

// forgetDeleted drops deletion marks at or below path, which a renumbered
// sibling now occupies.
func (b *Builder) forgetDeleted(path string) {
	for deleted := range b.deleted {
		if deleted == path || model.IsAncestorPath(path, deleted) {
			delete(b.deleted, deleted)
		}
	}
}

func (b *Builder) mergeNode(parent, node *Node, def *model.DefinitionNode) error {
	source := def.Source()

	if def.IgnoreReorderedChildren != nil {
		b.applyIgnoreReordered(node, *def.IgnoreReorderedChildren, source)
	}
	if def.OrderBefore != nil {
		if err := b.applyOrderBefore(parent, node, *def.OrderBefore, source); err != nil {
			return err
		}
	}
	for _, prop := range def.Properties {
		if err := b.mergeProperty(node, prop); err != nil {
			return err
		}
	}
	for _, child := range def.Nodes {
		seg, err := model.ParseSegment(child.Name)
		if err != nil {
			return &InvalidPathError{Path: child.Path, Module: source.ModuleName(), Err: err}
		}
		if err := b.applyNode(node, seg, child); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) applyIgnoreReordered(node *Node, value bool, source *model.Source) {
	if node.ignoreReorderedDeclared {
		if node.ignoreReordered == value {
			b.warn(report.KindRedundantIgnoreReordered, source, node.path,
				"%s already declares ignore-reordered-children %t", node.path, value)
		} else {
			b.warn(report.KindOverridingIgnoreReordered, source, node.path,
				"overriding ignore-reordered-children of %s from %t to %t", node.path, node.ignoreReordered, value)
		}
	}
	node.ignoreReordered = value
	node.ignoreReorderedDeclared = true
}

func (b *Builder) applyOrderBefore(parent, node *Node, target string, source *model.Source) error {
	if parent == nil {
		return &InvalidOrderBeforeError{Path: node.path, Target: target, Reason: "the root node has no siblings", Module: source.ModuleName()}
	}

	var sibling *Node
	if target != "" {
		seg, err := model.ParseSegment(target)
		if err != nil {
			return &InvalidOrderBeforeError{Path: node.path, Target: target, Reason: err.Error(), Module: source.ModuleName()}
		}
		if seg.Key() == node.Key() {
			return &InvalidOrderBeforeError{Path: node.path, Target: target, Reason: "a node cannot be ordered before itself", Module: source.ModuleName()}
		}
		sibling = parent.child(seg)
		if sibling == nil {
			return &InvalidOrderBeforeError{Path: node.path, Target: target, Reason: "sibling does not exist", Module: source.ModuleName()}
		}
	}

	if parent.ignoreReordered {
		b.warn(report.KindUnnecessaryReorder, source, node.path,
			"reordering %s has no effect, %s ignores reordered children", node.path, parent.path)
	}
	if !parent.moveBefore(node, sibling) {
		if target == "" {
			b.warn(report.KindRedundantReorder, source, node.path, "%s is already the first child", node.path)
		} else {
			b.warn(report.KindRedundantReorder, source, node.path, "%s is already ordered before %s", node.path, target)
		}
	}
	return nil
}

func (b *Builder) mergeProperty(node *Node, def *model.DefinitionProperty) error {
	source := def.Source()
	module := source.ModuleName()
	path := model.JoinPath(node.path, def.Name)

	if def.Operation != model.OperationDelete {
		if err := validateValues(def); err != nil {
			return &InvalidValueError{Path: path, Module: module, Err: err}
		}
	}
	existing := node.propIndex[def.Name]

	switch def.Operation {
	case model.OperationDelete:
		if def.Name == model.PrimaryTypeProperty {
			return &ProtectedPropertyError{Path: path, Module: module}
		}
		if existing == nil {
			b.warn(report.KindDeleteMissingProperty, source, path, "cannot delete %s: property does not exist", path)
			return nil
		}
		node.removeProperty(def.Name)
		return nil

	case model.OperationOverride:
		node.setProperty(newProperty(def))
		return nil

	case model.OperationAdd:
		if def.Kind != model.KindList {
			return &InvalidOperationError{Path: path, Operation: def.Operation.String(), Reason: "add requires a list property", Module: module}
		}
		if existing == nil {
			node.setProperty(newProperty(def))
			return nil
		}
		if err := checkTypes(existing, def, path); err != nil {
			return err
		}
		values := append([]model.Value(nil), existing.values...)
		for _, v := range def.Values {
			if def.Name == model.MixinTypesProperty && containsValue(values, v) {
				continue
			}
			values = append(values, v)
		}
		if len(values) == len(existing.values) {
			b.warn(report.KindEquivalentValue, source, path, "adding to %s has no effect", path)
			return nil
		}
		node.setProperty(&Property{
			name:      def.Name,
			kind:      existing.kind,
			valueType: existing.valueType,
			values:    values,
			source:    source,
		})
		return nil
	}

	if existing == nil {
		node.setProperty(newProperty(def))
		return nil
	}
	if err := checkTypes(existing, def, path); err != nil {
		return err
	}

	equal := model.ValuesEqual(existing.values, def.Values)
	switch def.Name {
	case model.PrimaryTypeProperty:
		if equal {
			return nil
		}
		return &PrimaryTypeOverrideError{
			Path:        path,
			Value:       firstText(def.Values),
			PriorValue:  firstText(existing.values),
			Module:      module,
			PriorModule: existing.source.ModuleName(),
		}
	case model.MixinTypesProperty:
		var removed []string
		for _, v := range existing.values {
			if !containsValue(def.Values, v) {
				removed = append(removed, v.Text)
			}
		}
		if len(removed) > 0 {
			return &MixinRemovalError{Path: path, Removed: removed, Module: module, PriorModule: existing.source.ModuleName()}
		}
	}

	if equal {
		if model.HasResource(def.Values) && existing.source != source {
			node.setProperty(newProperty(def))
			return nil
		}
		b.warn(report.KindEquivalentValue, source, path, "%s already has the value declared by %s", path, existing.source)
		return nil
	}
	node.setProperty(newProperty(def))
	return nil
}

func checkTypes(existing *Property, def *model.DefinitionProperty, path string) error {
	if existing.kind != def.Kind {
		return &PropertyTypeConflictError{
			Path:        path,
			Kind:        def.Kind.String(),
			PriorKind:   existing.kind.String(),
			Module:      def.Source().ModuleName(),
			PriorModule: existing.source.ModuleName(),
		}
	}
	if existing.valueType != def.ValueType {
		return &PropertyValueTypeConflictError{
			Path:           path,
			ValueType:      string(def.ValueType),
			PriorValueType: string(existing.valueType),
			Module:         def.Source().ModuleName(),
			PriorModule:    existing.source.ModuleName(),
		}
	}
	return nil
}

func validateValues(def *model.DefinitionProperty) error {
	if def.Kind == model.KindSingle && len(def.Values) != 1 {
		return fmt.Errorf("single property needs exactly one value, got %d", len(def.Values))
	}
	for _, v := range def.Values {
		if v.Type != def.ValueType {
			return fmt.Errorf("value %q has type %s, property is declared as %s", v.Text, v.Type, def.ValueType)
		}
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func firstText(values []model.Value) string {
	if len(values) == 0 {
		return ""
	}
	return values[0].Text
}

func containsValue(values []model.Value, v model.Value) bool {
	for _, candidate := range values {
		if candidate.Equal(v) {
			return true
		}
	}
	return false
}

func (b *Builder) warn(kind report.Kind, source *model.Source, path, format string, args ...interface{}) {
	b.reporter.Report(report.Warning{
		Level:   report.LevelWarn,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Module:  source.ModuleName(),
		Path:    path,
	})
}
