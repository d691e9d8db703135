package model

import "strings"

// Reserved property names that receive special merge treatment.
const (
	PrimaryTypeProperty = "jcr:primaryType"
	MixinTypesProperty  = "jcr:mixinTypes"
)

// DeleteMode describes the meta:delete directive of a definition node.
type DeleteMode int

const (
	// DeleteNone leaves the node in place.
	DeleteNone DeleteMode = iota
	// DeleteNode removes the node. Supplying content alongside is a conflict.
	DeleteNode
	// DeleteThenMerge removes the node if present and recreates it from the
	// content supplied by the same definition node.
	DeleteThenMerge
)

// DefinitionNode is one node of a content definition subtree.
type DefinitionNode struct {
	Path       string
	Name       string
	Nodes      []*DefinitionNode
	Properties []*DefinitionProperty

	Delete DeleteMode
	// OrderBefore is nil when the directive is absent. An empty target means
	// "first position".
	OrderBefore             *string
	IgnoreReorderedChildren *bool

	parent     *DefinitionNode
	definition *ContentDefinition
}

// Parent returns the enclosing definition node, nil for a definition root.
func (n *DefinitionNode) Parent() *DefinitionNode { return n.parent }

// Definition returns the content definition the node belongs to.
func (n *DefinitionNode) Definition() *ContentDefinition {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.definition != nil {
			return cur.definition
		}
	}
	return nil
}

// Source returns the declaring source.
func (n *DefinitionNode) Source() *Source {
	if def := n.Definition(); def != nil {
		return def.Source()
	}
	return nil
}

// AddNode appends a child definition node. name may carry an explicit
// same-name-sibling index such as "item[2]".
func (n *DefinitionNode) AddNode(name string) *DefinitionNode {
	child := &DefinitionNode{Path: JoinPath(n.Path, name), Name: name, parent: n}
	n.Nodes = append(n.Nodes, child)
	return child
}

// AddProperty appends a property with the default replace operation.
func (n *DefinitionNode) AddProperty(name string, kind PropertyKind, valueType ValueType, values ...Value) *DefinitionProperty {
	prop := &DefinitionProperty{
		Name:      name,
		Kind:      kind,
		ValueType: valueType,
		Values:    values,
		Operation: OperationReplace,
		parent:    n,
	}
	n.Properties = append(n.Properties, prop)
	return prop
}

// SetString is a shorthand for a single string property.
func (n *DefinitionNode) SetString(name, value string) *DefinitionProperty {
	return n.AddProperty(name, KindSingle, TypeString, StringValue(value))
}

// SetOrderBefore sets the meta:order-before directive.
func (n *DefinitionNode) SetOrderBefore(target string) {
	n.OrderBefore = &target
}

// SetIgnoreReorderedChildren sets the meta:ignore-reordered-children directive.
func (n *DefinitionNode) SetIgnoreReorderedChildren(value bool) {
	n.IgnoreReorderedChildren = &value
}

// HasContent reports whether the node supplies anything besides a delete.
func (n *DefinitionNode) HasContent() bool {
	return len(n.Nodes) > 0 || len(n.Properties) > 0 || n.OrderBefore != nil || n.IgnoreReorderedChildren != nil
}

// DefinitionProperty is a property declared by a definition node.
type DefinitionProperty struct {
	Name      string
	Kind      PropertyKind
	ValueType ValueType
	Values    []Value
	Operation PropertyOperation

	parent *DefinitionNode
}

// Parent returns the declaring definition node.
func (p *DefinitionProperty) Parent() *DefinitionNode { return p.parent }

// Path returns the absolute path of the property.
func (p *DefinitionProperty) Path() string {
	if p.parent == nil {
		return "/" + p.Name
	}
	return JoinPath(p.parent.Path, p.Name)
}

// Source returns the declaring source.
func (p *DefinitionProperty) Source() *Source {
	if p.parent == nil {
		return nil
	}
	return p.parent.Source()
}

// WithOperation sets the merge operation and returns the property.
func (p *DefinitionProperty) WithOperation(op PropertyOperation) *DefinitionProperty {
	p.Operation = op
	return p
}

func lastSegment(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		return ""
	}
	idx := strings.LastIndex(trimmed, "/")
	return trimmed[idx+1:]
}
