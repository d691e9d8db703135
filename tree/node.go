// Package tree folds an ordered stream of content definitions into one
// configuration tree.
//
// The Builder owns the tree exclusively while definitions are pushed. Once
// Build returns, the tree is read-only: Node and Property expose accessors
// only.
package tree

import (
	"sort"

	"github.com/timzifer/hcm/model"
)

// Node is a node of the merged configuration tree.
type Node struct {
	path  string
	name  string
	index int

	children   []*Node
	childIndex map[string]*Node

	properties []*Property
	propIndex  map[string]*Property

	ignoreReordered         bool
	ignoreReorderedDeclared bool

	source *model.Source
}

func newNode(path string, seg model.Segment, source *model.Source) *Node {
	return &Node{
		path:       path,
		name:       seg.Name,
		index:      seg.Index,
		childIndex: make(map[string]*Node),
		propIndex:  make(map[string]*Property),
		source:     source,
	}
}

func newRoot() *Node {
	return &Node{
		path:       "/",
		childIndex: make(map[string]*Node),
		propIndex:  make(map[string]*Property),
	}
}

// Path returns the absolute path; default indices are omitted.
func (n *Node) Path() string { return n.path }

// Name returns the node name, empty for the root.
func (n *Node) Name() string { return n.name }

// Index returns the 1-based same-name-sibling index, 0 for the root.
func (n *Node) Index() int { return n.index }

// Key returns name[index], the key of the node in its parent.
func (n *Node) Key() string {
	return model.Segment{Name: n.name, Index: n.index}.Key()
}

// IsRoot reports whether n is the root node.
func (n *Node) IsRoot() bool { return n.path == "/" }

// Source returns the source that created the node; nil for the root.
func (n *Node) Source() *model.Source { return n.source }

// Children returns the child nodes in order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// ChildKeys returns name[index] keys in child order.
func (n *Node) ChildKeys() []string {
	keys := make([]string, len(n.children))
	for i, child := range n.children {
		keys[i] = child.Key()
	}
	return keys
}

// Child looks up a direct child by "name" or "name[index]".
func (n *Node) Child(name string) *Node {
	seg, err := model.ParseSegment(name)
	if err != nil {
		return nil
	}
	return n.childIndex[seg.Key()]
}

// Lookup resolves an absolute path relative to n, which is expected to be the root.
func (n *Node) Lookup(path string) *Node {
	segments, err := model.SplitPath(path)
	if err != nil {
		return nil
	}
	cur := n
	for _, seg := range segments {
		cur = cur.childIndex[seg.Key()]
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Properties returns the properties in declaration order.
func (n *Node) Properties() []*Property {
	return append([]*Property(nil), n.properties...)
}

// Property returns the named property or nil.
func (n *Node) Property(name string) *Property {
	return n.propIndex[name]
}

// IgnoreReorderedChildren returns the flag and whether it was declared at all.
func (n *Node) IgnoreReorderedChildren() (value bool, declared bool) {
	return n.ignoreReordered, n.ignoreReorderedDeclared
}

// Walk visits n and its descendants depth-first in child order.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.children {
		child.Walk(fn)
	}
}

func (n *Node) child(seg model.Segment) *Node {
	return n.childIndex[seg.Key()]
}

func (n *Node) addChild(seg model.Segment, source *model.Source) *Node {
	child := newNode(model.JoinPath(n.path, seg.String()), seg, source)
	n.children = append(n.children, child)
	n.childIndex[seg.Key()] = child
	return child
}

func (n *Node) position(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// removeChild detaches child and renumbers the following same-name siblings
// so that indices stay contiguous. It returns the renumbered siblings.
func (n *Node) removeChild(child *Node) []*Node {
	pos := n.position(child)
	if pos < 0 {
		return nil
	}
	n.children = append(n.children[:pos], n.children[pos+1:]...)
	delete(n.childIndex, child.Key())

	var shifted []*Node
	for _, sibling := range n.children {
		if sibling.name == child.name && sibling.index > child.index {
			shifted = append(shifted, sibling)
		}
	}
	// Lowest index first so a renamed key never collides with a sibling that
	// still has to move.
	sort.Slice(shifted, func(i, j int) bool { return shifted[i].index < shifted[j].index })
	for _, sibling := range shifted {
		delete(n.childIndex, sibling.Key())
		sibling.index--
		n.childIndex[sibling.Key()] = sibling
		sibling.rebase(n.path)
	}
	return shifted
}

// rebase recomputes the path of n and its subtree below parentPath.
func (n *Node) rebase(parentPath string) {
	n.path = model.JoinPath(parentPath, model.Segment{Name: n.name, Index: n.index}.String())
	for _, child := range n.children {
		child.rebase(n.path)
	}
}

// moveBefore moves child in front of sibling, or to the first position when
// sibling is nil. It reports whether the order changed.
func (n *Node) moveBefore(child, sibling *Node) bool {
	from := n.position(child)
	if sibling == nil {
		if from == 0 {
			return false
		}
	} else if n.position(sibling) == from+1 {
		return false
	}
	n.children = append(n.children[:from], n.children[from+1:]...)
	to := 0
	if sibling != nil {
		to = n.position(sibling)
	}
	n.children = append(n.children, nil)
	copy(n.children[to+1:], n.children[to:])
	n.children[to] = child
	return true
}

// reset drops all content so the node can be recreated in place.
func (n *Node) reset(source *model.Source) {
	n.children = nil
	n.childIndex = make(map[string]*Node)
	n.properties = nil
	n.propIndex = make(map[string]*Property)
	n.ignoreReordered = false
	n.ignoreReorderedDeclared = false
	n.source = source
}

func (n *Node) setProperty(prop *Property) {
	if _, exists := n.propIndex[prop.name]; !exists {
		n.properties = append(n.properties, prop)
	} else {
		for i, p := range n.properties {
			if p.name == prop.name {
				n.properties[i] = prop
				break
			}
		}
	}
	n.propIndex[prop.name] = prop
}

func (n *Node) removeProperty(name string) {
	if _, exists := n.propIndex[name]; !exists {
		return
	}
	delete(n.propIndex, name)
	for i, p := range n.properties {
		if p.name == name {
			n.properties = append(n.properties[:i], n.properties[i+1:]...)
			break
		}
	}
}

// Property is a property of the merged tree.
type Property struct {
	name      string
	kind      model.PropertyKind
	valueType model.ValueType
	values    []model.Value
	source    *model.Source
}

func newProperty(def *model.DefinitionProperty) *Property {
	return &Property{
		name:      def.Name,
		kind:      def.Kind,
		valueType: def.ValueType,
		values:    append([]model.Value(nil), def.Values...),
		source:    def.Source(),
	}
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// Kind returns single or list.
func (p *Property) Kind() model.PropertyKind { return p.kind }

// ValueType returns the type shared by all values.
func (p *Property) ValueType() model.ValueType { return p.valueType }

// Values returns a copy of the values.
func (p *Property) Values() []model.Value { return append([]model.Value(nil), p.values...) }

// Value returns the first value, or the zero value for an empty list.
func (p *Property) Value() model.Value {
	if len(p.values) == 0 {
		return model.Value{}
	}
	return p.values[0]
}

// Source returns the source of the last definition that changed the property.
func (p *Property) Source() *model.Source { return p.source }
