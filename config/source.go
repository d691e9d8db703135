package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/hcm/model"
)

// Directive keys, optionally written with a leading dot.
const (
	directiveDelete          = "meta:delete"
	directiveOrderBefore     = "meta:order-before"
	directiveIgnoreReordered = "meta:ignore-reordered-children"
)

// SourceError locates a malformed entry in a definition file.
type SourceError struct {
	File string
	Line int
	Err  error
}

func (e *SourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErrorf(src *model.Source, node *yaml.Node, format string, args ...interface{}) error {
	line := 0
	if node != nil {
		line = node.Line
	}
	return &SourceError{File: src.Path, Line: line, Err: fmt.Errorf(format, args...)}
}

// ParseSource decodes a definition file and appends its definitions to src in
// declaration order.
func ParseSource(src *model.Source, raw []byte) error {
	var document yaml.Node
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return &SourceError{File: src.Path, Err: err}
	}
	if len(document.Content) == 0 || document.Content[0] == nil {
		return nil
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return sourceErrorf(src, root, "top-level YAML document must be a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Value != "definitions" {
			return sourceErrorf(src, key, "unknown top-level key %q", key.Value)
		}
		if err := parseDefinitions(src, value); err != nil {
			return err
		}
	}
	return nil
}

func parseDefinitions(src *model.Source, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return sourceErrorf(src, node, "definitions must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "namespace":
			err = parseNamespaces(src, value)
		case "cnd":
			err = parseNodeTypes(src, value)
		case "config":
			err = parseConfig(src, value)
		default:
			err = sourceErrorf(src, key, "unknown definition category %q", key.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func parseNamespaces(src *model.Source, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return sourceErrorf(src, node, "namespace must map prefixes to {uri}")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var ns struct {
			URI string `yaml:"uri"`
		}
		if value.Kind == yaml.ScalarNode {
			ns.URI = value.Value
		} else if err := value.Decode(&ns); err != nil {
			return sourceErrorf(src, value, "namespace %s: %v", key.Value, err)
		}
		if strings.TrimSpace(ns.URI) == "" {
			return sourceErrorf(src, value, "namespace %s: uri is required", key.Value)
		}
		src.AddNamespace(strings.TrimSpace(key.Value), strings.TrimSpace(ns.URI))
	}
	return nil
}

func parseNodeTypes(src *model.Source, node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		src.AddNodeType(node.Value)
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return sourceErrorf(src, item, "cnd entries must be strings")
			}
			src.AddNodeType(item.Value)
		}
	default:
		return sourceErrorf(src, node, "cnd must be a string or a list of strings")
	}
	return nil
}

func parseConfig(src *model.Source, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return sourceErrorf(src, node, "config must map absolute paths to nodes")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !strings.HasPrefix(key.Value, "/") {
			return sourceErrorf(src, key, "config root %q must be an absolute path", key.Value)
		}
		def := src.AddContent(key.Value)
		if err := parseNode(src, def.Node, value); err != nil {
			return err
		}
	}
	return nil
}

func parseNode(src *model.Source, def *model.DefinitionNode, node *yaml.Node) error {
	if isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return sourceErrorf(src, node, "node %s must be a mapping", def.Path)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := key.Value
		switch {
		case strings.HasPrefix(name, "/"):
			childName := strings.TrimPrefix(name, "/")
			if _, err := model.ParseSegment(childName); err != nil {
				return sourceErrorf(src, key, "%v", err)
			}
			if err := parseNode(src, def.AddNode(childName), value); err != nil {
				return err
			}
		case isDirective(name):
			if err := parseDirective(src, def, strings.TrimPrefix(name, "."), value); err != nil {
				return err
			}
		default:
			if err := parseProperty(src, def, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDirective(name string) bool {
	return strings.HasPrefix(name, "meta:") || strings.HasPrefix(name, ".meta:")
}

func parseDirective(src *model.Source, def *model.DefinitionNode, name string, node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return sourceErrorf(src, node, "%s on %s must be a scalar", name, def.Path)
	}
	switch name {
	case directiveDelete:
		switch strings.ToLower(strings.TrimSpace(node.Value)) {
		case "true":
			def.Delete = model.DeleteNode
		case "false":
			def.Delete = model.DeleteNone
		case "merge":
			def.Delete = model.DeleteThenMerge
		default:
			return sourceErrorf(src, node, "%s on %s must be true, false or merge", name, def.Path)
		}
	case directiveOrderBefore:
		target := node.Value
		if isNull(node) {
			target = ""
		}
		def.SetOrderBefore(strings.TrimSpace(target))
	case directiveIgnoreReordered:
		var value bool
		if err := node.Decode(&value); err != nil {
			return sourceErrorf(src, node, "%s on %s: %v", name, def.Path, err)
		}
		def.SetIgnoreReorderedChildren(value)
	default:
		return sourceErrorf(src, node, "unknown directive %s on %s", name, def.Path)
	}
	return nil
}

func parseProperty(src *model.Source, def *model.DefinitionNode, name string, node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if isNull(node) {
			return sourceErrorf(src, node, "property %s on %s has no value", name, def.Path)
		}
		vt, err := inferType(name, node)
		if err != nil {
			return sourceErrorf(src, node, "property %s on %s: %v", name, def.Path, err)
		}
		text, err := scalarText(node, vt)
		if err != nil {
			return sourceErrorf(src, node, "property %s on %s: %v", name, def.Path, err)
		}
		def.AddProperty(name, model.KindSingle, vt, model.Value{Type: vt, Text: text})
		return nil
	case yaml.SequenceNode:
		vt, values, err := sequenceValues(name, "", node, false)
		if err != nil {
			return sourceErrorf(src, node, "property %s on %s: %v", name, def.Path, err)
		}
		def.AddProperty(name, model.KindList, vt, values...)
		return nil
	case yaml.MappingNode:
		if _, err := structuredProperty(def, name, node); err != nil {
			return sourceErrorf(src, node, "property %s on %s: %v", name, def.Path, err)
		}
		return nil
	default:
		return sourceErrorf(src, node, "property %s on %s has an unsupported value", name, def.Path)
	}
}

// structuredProperty decodes {type, value | resource, operation}.
func structuredProperty(def *model.DefinitionNode, name string, node *yaml.Node) (*model.DefinitionProperty, error) {
	var (
		typeName  string
		operation string
		value     *yaml.Node
		resource  *yaml.Node
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "type":
			typeName = val.Value
		case "operation":
			operation = val.Value
		case "value":
			value = val
		case "resource":
			resource = val
		default:
			return nil, fmt.Errorf("unknown property attribute %q", key.Value)
		}
	}

	op, err := model.ParseOperation(operation)
	if err != nil {
		return nil, err
	}
	if value != nil && resource != nil {
		return nil, errors.New("value and resource are mutually exclusive")
	}

	var vt model.ValueType
	if typeName != "" {
		if vt, err = model.ParseValueType(typeName); err != nil {
			return nil, err
		}
	}

	payload, isResource := value, false
	if resource != nil {
		payload, isResource = resource, true
		if vt == "" {
			vt = model.TypeBinary
		}
	}

	if payload == nil {
		if op != model.OperationDelete {
			return nil, errors.New("value or resource is required")
		}
		if vt == "" {
			vt = defaultType(name)
		}
		return def.AddProperty(name, model.KindSingle, vt).WithOperation(op), nil
	}

	switch payload.Kind {
	case yaml.ScalarNode:
		if vt == "" {
			if vt, err = inferType(name, payload); err != nil {
				return nil, err
			}
		}
		text := payload.Value
		if !isResource {
			if text, err = scalarText(payload, vt); err != nil {
				return nil, err
			}
		}
		v := model.Value{Type: vt, Text: text, Resource: isResource}
		return def.AddProperty(name, model.KindSingle, vt, v).WithOperation(op), nil
	case yaml.SequenceNode:
		vt, values, err := sequenceValues(name, vt, payload, isResource)
		if err != nil {
			return nil, err
		}
		return def.AddProperty(name, model.KindList, vt, values...).WithOperation(op), nil
	default:
		return nil, errors.New("value must be a scalar or a list")
	}
}

func sequenceValues(name string, vt model.ValueType, node *yaml.Node, resource bool) (model.ValueType, []model.Value, error) {
	values := make([]model.Value, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode || isNull(item) {
			return "", nil, errors.New("list entries must be scalars")
		}
		itemType := vt
		if itemType == "" {
			inferred, err := inferType(name, item)
			if err != nil {
				return "", nil, err
			}
			itemType = inferred
		}
		if len(values) > 0 && values[0].Type != itemType {
			return "", nil, fmt.Errorf("list mixes %s and %s values", values[0].Type, itemType)
		}
		text := item.Value
		if !resource {
			var err error
			if text, err = scalarText(item, itemType); err != nil {
				return "", nil, err
			}
		}
		values = append(values, model.Value{Type: itemType, Text: text, Resource: resource})
	}
	if len(values) > 0 {
		vt = values[0].Type
	}
	if vt == "" {
		vt = defaultType(name)
	}
	return vt, values, nil
}

// inferType maps YAML scalar tags to value types. The reserved type
// properties always hold names.
func inferType(name string, node *yaml.Node) (model.ValueType, error) {
	if name == model.PrimaryTypeProperty || name == model.MixinTypesProperty {
		return model.TypeName, nil
	}
	switch node.ShortTag() {
	case "!!str":
		return model.TypeString, nil
	case "!!int":
		return model.TypeLong, nil
	case "!!float":
		return model.TypeDouble, nil
	case "!!bool":
		return model.TypeBoolean, nil
	case "!!timestamp":
		return model.TypeDate, nil
	case "!!binary":
		return model.TypeBinary, nil
	default:
		return "", fmt.Errorf("cannot infer a value type from %s; declare type explicitly", node.ShortTag())
	}
}

// scalarText renders YAML timestamps, integers and floats in the canonical
// form of their value type, so "2020-01-01" and "0x1F" survive validation.
func scalarText(node *yaml.Node, vt model.ValueType) (string, error) {
	switch {
	case vt == model.TypeDate && node.ShortTag() == "!!timestamp":
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return "", fmt.Errorf("decode date %q: %w", node.Value, err)
		}
		return t.Format(time.RFC3339Nano), nil
	case vt == model.TypeLong && node.ShortTag() == "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return "", fmt.Errorf("decode long %q: %w", node.Value, err)
		}
		return strconv.FormatInt(n, 10), nil
	case vt == model.TypeDouble && node.ShortTag() == "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return "", fmt.Errorf("decode double %q: %w", node.Value, err)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return node.Value, nil
}

func defaultType(name string) model.ValueType {
	if name == model.PrimaryTypeProperty || name == model.MixinTypesProperty {
		return model.TypeName
	}
	return model.TypeString
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}
