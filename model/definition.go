package model

// Source is an ordered sequence of definitions contributed by one origin,
// usually one file.
type Source struct {
	Path        string
	Module      *Module
	Definitions []Definition
}

// ModuleName returns the full name of the declaring module, or an empty string.
func (s *Source) ModuleName() string {
	if s == nil {
		return ""
	}
	return s.Module.FullName()
}

// String identifies the source in diagnostics.
func (s *Source) String() string {
	if s == nil {
		return "<unknown>"
	}
	if s.Module == nil {
		return s.Path
	}
	return s.Module.FullName() + ":" + s.Path
}

// AddNamespace appends a namespace definition.
func (s *Source) AddNamespace(prefix, uri string) *NamespaceDefinition {
	def := &NamespaceDefinition{Prefix: prefix, URI: uri, source: s}
	s.Definitions = append(s.Definitions, def)
	return def
}

// AddNodeType appends a node type definition.
func (s *Source) AddNodeType(value string) *NodeTypeDefinition {
	def := &NodeTypeDefinition{Value: value, source: s}
	s.Definitions = append(s.Definitions, def)
	return def
}

// AddContent appends a content definition rooted at path and returns it.
// The returned definition's Node is empty and ready to be populated.
func (s *Source) AddContent(path string) *ContentDefinition {
	def := &ContentDefinition{source: s}
	def.Node = &DefinitionNode{Path: path, Name: lastSegment(path), definition: def}
	s.Definitions = append(s.Definitions, def)
	return def
}

// DefinitionKind enumerates the Definition variants.
type DefinitionKind int

const (
	KindNamespace DefinitionKind = iota
	KindNodeType
	KindContent
)

func (k DefinitionKind) String() string {
	switch k {
	case KindNamespace:
		return "namespace"
	case KindNodeType:
		return "nodetype"
	case KindContent:
		return "content"
	default:
		return "unknown"
	}
}

// Definition is a closed sum type: the only implementations are
// *NamespaceDefinition, *NodeTypeDefinition and *ContentDefinition.
type Definition interface {
	Kind() DefinitionKind
	Source() *Source
	definition()
}

// NamespaceDefinition registers a namespace prefix.
type NamespaceDefinition struct {
	Prefix string
	URI    string
	source *Source
}

func (*NamespaceDefinition) Kind() DefinitionKind { return KindNamespace }
func (d *NamespaceDefinition) Source() *Source    { return d.source }
func (*NamespaceDefinition) definition()          {}

// NodeTypeDefinition carries one node type declaration in its textual form.
type NodeTypeDefinition struct {
	Value  string
	source *Source
}

func (*NodeTypeDefinition) Kind() DefinitionKind { return KindNodeType }
func (d *NodeTypeDefinition) Source() *Source    { return d.source }
func (*NodeTypeDefinition) definition()          {}

// ContentDefinition contributes a subtree rooted at Node.Path.
type ContentDefinition struct {
	Node   *DefinitionNode
	source *Source
}

func (*ContentDefinition) Kind() DefinitionKind { return KindContent }
func (d *ContentDefinition) Source() *Source    { return d.source }
func (*ContentDefinition) definition()          {}

// RootPath returns the absolute path the definition is rooted at.
func (d *ContentDefinition) RootPath() string {
	if d == nil || d.Node == nil {
		return ""
	}
	return d.Node.Path
}
