package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueType is the type tag carried by every property value.
type ValueType string

const (
	TypeString        ValueType = "string"
	TypeBinary        ValueType = "binary"
	TypeLong          ValueType = "long"
	TypeDouble        ValueType = "double"
	TypeDate          ValueType = "date"
	TypeBoolean       ValueType = "boolean"
	TypeName          ValueType = "name"
	TypePath          ValueType = "path"
	TypeReference     ValueType = "reference"
	TypeWeakReference ValueType = "weakreference"
	TypeURI           ValueType = "uri"
	TypeDecimal       ValueType = "decimal"
)

var valueTypes = map[string]ValueType{
	string(TypeString):        TypeString,
	string(TypeBinary):        TypeBinary,
	string(TypeLong):          TypeLong,
	string(TypeDouble):        TypeDouble,
	string(TypeDate):          TypeDate,
	string(TypeBoolean):       TypeBoolean,
	string(TypeName):          TypeName,
	string(TypePath):          TypePath,
	string(TypeReference):     TypeReference,
	string(TypeWeakReference): TypeWeakReference,
	string(TypeURI):           TypeURI,
	string(TypeDecimal):       TypeDecimal,
}

// ParseValueType resolves a value type by its case-insensitive name.
func ParseValueType(raw string) (ValueType, error) {
	vt, ok := valueTypes[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown value type %q", raw)
	}
	return vt, nil
}

// PropertyKind distinguishes single valued from list valued properties.
type PropertyKind int

const (
	KindSingle PropertyKind = iota
	KindList
)

func (k PropertyKind) String() string {
	if k == KindList {
		return "list"
	}
	return "single"
}

// PropertyOperation selects the merge semantics of a definition property.
type PropertyOperation int

const (
	OperationReplace PropertyOperation = iota
	OperationAdd
	OperationOverride
	OperationDelete
)

func (o PropertyOperation) String() string {
	switch o {
	case OperationAdd:
		return "add"
	case OperationOverride:
		return "override"
	case OperationDelete:
		return "delete"
	default:
		return "replace"
	}
}

// ParseOperation resolves an operation by name. An empty name means replace.
func ParseOperation(raw string) (PropertyOperation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "replace":
		return OperationReplace, nil
	case "add":
		return OperationAdd, nil
	case "override":
		return OperationOverride, nil
	case "delete":
		return OperationDelete, nil
	default:
		return OperationReplace, fmt.Errorf("unknown property operation %q", raw)
	}
}

// Value is a single typed property value in its textual form. Resource values
// hold the name of an external resource instead of literal content.
type Value struct {
	Type     ValueType
	Text     string
	Resource bool
}

// StringValue builds a string value.
func StringValue(s string) Value { return Value{Type: TypeString, Text: s} }

// LongValue builds a long value.
func LongValue(v int64) Value { return Value{Type: TypeLong, Text: strconv.FormatInt(v, 10)} }

// BooleanValue builds a boolean value.
func BooleanValue(v bool) Value { return Value{Type: TypeBoolean, Text: strconv.FormatBool(v)} }

// NameValue builds a name value, used for primary and mixin types.
func NameValue(s string) Value { return Value{Type: TypeName, Text: s} }

// ResourceValue builds a value that refers to a named resource.
func ResourceValue(vt ValueType, name string) Value {
	return Value{Type: vt, Text: name, Resource: true}
}

func (v Value) String() string {
	if v.Resource {
		return "resource:" + v.Text
	}
	return v.Text
}

// Equal compares two values by type and meaning. Resource values are equal
// when they name the same resource.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type || v.Resource != other.Resource {
		return false
	}
	if v.Resource {
		return v.Text == other.Text
	}
	switch v.Type {
	case TypeLong:
		a, errA := strconv.ParseInt(strings.TrimSpace(v.Text), 10, 64)
		b, errB := strconv.ParseInt(strings.TrimSpace(other.Text), 10, 64)
		if errA == nil && errB == nil {
			return a == b
		}
	case TypeDouble:
		a, errA := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(other.Text), 64)
		if errA == nil && errB == nil {
			return a == b
		}
	case TypeBoolean:
		a, errA := strconv.ParseBool(strings.TrimSpace(v.Text))
		b, errB := strconv.ParseBool(strings.TrimSpace(other.Text))
		if errA == nil && errB == nil {
			return a == b
		}
	case TypeDecimal:
		a, errA := decimal.NewFromString(strings.TrimSpace(v.Text))
		b, errB := decimal.NewFromString(strings.TrimSpace(other.Text))
		if errA == nil && errB == nil {
			return a.Equal(b)
		}
	case TypeDate:
		a, errA := time.Parse(time.RFC3339Nano, strings.TrimSpace(v.Text))
		b, errB := time.Parse(time.RFC3339Nano, strings.TrimSpace(other.Text))
		if errA == nil && errB == nil {
			return a.Equal(b)
		}
	}
	return v.Text == other.Text
}

// Validate checks that the textual form parses for the value's type.
func (v Value) Validate() error {
	if v.Resource {
		if strings.TrimSpace(v.Text) == "" {
			return fmt.Errorf("resource value must name a resource")
		}
		return nil
	}
	text := strings.TrimSpace(v.Text)
	var err error
	switch v.Type {
	case TypeLong:
		_, err = strconv.ParseInt(text, 10, 64)
	case TypeDouble:
		_, err = strconv.ParseFloat(text, 64)
	case TypeBoolean:
		_, err = strconv.ParseBool(text)
	case TypeDecimal:
		_, err = decimal.NewFromString(text)
	case TypeDate:
		_, err = time.Parse(time.RFC3339Nano, text)
	}
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", v.Type, v.Text, err)
	}
	return nil
}

// ValuesEqual compares two value lists element by element.
func ValuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// HasResource reports whether any value in the list is a resource.
func HasResource(values []Value) bool {
	for _, v := range values {
		if v.Resource {
			return true
		}
	}
	return false
}
