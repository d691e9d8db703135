package tree

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/hcm/model"
)

const ignoreReorderedKey = "meta:ignore-reordered-children"

// ToYAML renders n as a mapping in the definition source format: properties
// first, then one "/name" key per child, both in tree order.
func ToYAML(n *Node) *yaml.Node {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if value, declared := n.IgnoreReorderedChildren(); declared {
		mapping.Content = append(mapping.Content,
			scalar("!!str", ignoreReorderedKey),
			scalar("!!bool", strconv.FormatBool(value)),
		)
	}
	for _, prop := range n.properties {
		mapping.Content = append(mapping.Content, scalar("!!str", prop.name), propertyYAML(prop))
	}
	for _, child := range n.children {
		mapping.Content = append(mapping.Content, scalar("!!str", "/"+model.Segment{Name: child.name, Index: child.index}.String()), ToYAML(child))
	}
	return mapping
}

// Marshal encodes the tree below root as a loadable source document.
func Marshal(root *Node) ([]byte, error) {
	config := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	config.Content = append(config.Content, scalar("!!str", root.path), ToYAML(root))

	definitions := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	definitions.Content = append(definitions.Content, scalar("!!str", "config"), config)

	top := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	top.Content = append(top.Content, scalar("!!str", "definitions"), definitions)

	document := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{top}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func propertyYAML(p *Property) *yaml.Node {
	resource := model.HasResource(p.values)
	tag, plain := plainTag(p.valueType)
	if plain && !resource && (p.kind == model.KindSingle || len(p.values) > 0) {
		return valuesYAML(p, tag)
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	mapping.Content = append(mapping.Content, scalar("!!str", "type"), scalar("!!str", string(p.valueType)))
	key := "value"
	if resource {
		key = "resource"
	}
	if !plain {
		tag = "!!str"
	}
	mapping.Content = append(mapping.Content, scalar("!!str", key), valuesYAML(p, tag))
	return mapping
}

func valuesYAML(p *Property, tag string) *yaml.Node {
	if p.kind == model.KindSingle {
		return scalar(tag, p.Value().Text)
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range p.values {
		seq.Content = append(seq.Content, scalar(tag, v.Text))
	}
	return seq
}

// plainTag returns the YAML tag of value types that the loader infers from a
// bare scalar.
func plainTag(vt model.ValueType) (string, bool) {
	switch vt {
	case model.TypeString:
		return "!!str", true
	case model.TypeLong:
		return "!!int", true
	case model.TypeDouble:
		return "!!float", true
	case model.TypeBoolean:
		return "!!bool", true
	default:
		return "", false
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
