package idm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"reflect"
)

// MetadataKind is the JSON type held by a Metadata value.
type MetadataKind int

const (
	MetadataNull MetadataKind = iota
	MetadataBool
	MetadataNumber
	MetadataString
	MetadataArray
	MetadataObject
)

// String returns the JSON type name.
func (k MetadataKind) String() string {
	switch k {
	case MetadataNull:
		return "null"
	case MetadataBool:
		return "bool"
	case MetadataNumber:
		return "number"
	case MetadataString:
		return "string"
	case MetadataArray:
		return "array"
	case MetadataObject:
		return "object"
	default:
		return fmt.Sprintf("MetadataKind(%d)", int(k))
	}
}

// Metadata is an arbitrary JSON value attached to a tenant or user. The
// service imposes no schema on it.
//
// The zero value is JSON null. Internally the value is always one of nil,
// bool, json.Number, string, []any or map[string]any, so two Metadata values
// holding the same JSON compare equal with Equal.
type Metadata struct {
	v any
}

// NullMetadata returns the JSON null value.
func NullMetadata() Metadata {
	return Metadata{}
}

// NewMetadata converts any JSON-marshalable Go value into Metadata.
func NewMetadata(v any) (Metadata, error) {
	if m, ok := v.(Metadata); ok {
		return m, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrUnsupportedMetadata, err)
	}

	return ParseMetadata(data)
}

// MustMetadata is like NewMetadata but panics on error. Intended for literals.
func MustMetadata(v any) Metadata {
	m, err := NewMetadata(v)
	if err != nil {
		panic(err)
	}

	return m
}

// ParseMetadata decodes a single JSON document.
func ParseMetadata(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any

	err := dec.Decode(&v)
	if err != nil {
		return Metadata{}, fmt.Errorf("parsing metadata: %w", err)
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return Metadata{}, fmt.Errorf("parsing metadata: %w", ErrTrailingData)
	}

	return Metadata{v: v}, nil
}

// Kind returns the JSON type of the value.
func (m Metadata) Kind() MetadataKind {
	switch m.v.(type) {
	case bool:
		return MetadataBool
	case json.Number:
		return MetadataNumber
	case string:
		return MetadataString
	case []any:
		return MetadataArray
	case map[string]any:
		return MetadataObject
	default:
		return MetadataNull
	}
}

// IsNull reports whether the value is JSON null.
func (m Metadata) IsNull() bool {
	return m.v == nil
}

// Value returns a deep copy of the underlying Go value.
func (m Metadata) Value() any {
	return clone(m.v)
}

// Object returns a copy of the value as a map if it is a JSON object.
func (m Metadata) Object() (map[string]any, bool) {
	obj, ok := m.v.(map[string]any)
	if !ok {
		return nil, false
	}

	return clone(obj).(map[string]any), true
}

// Equal reports whether both values hold the same JSON.
func (m Metadata) Equal(other Metadata) bool {
	return reflect.DeepEqual(m.v, other.v)
}

// Merge returns the result of a shallow merge patch: keys in patch are added
// or overwritten, all other keys are kept. A null value is treated as an empty
// object. Any other non-object value cannot be patched.
func (m Metadata) Merge(patch map[string]any) (Metadata, error) {
	base := map[string]any{}

	switch m.Kind() {
	case MetadataNull:
	case MetadataObject:
		base, _ = m.Object()
	default:
		return Metadata{}, fmt.Errorf("%w: %s", ErrMetadataNotObject, m.Kind())
	}

	normalized, err := NewMetadata(patch)
	if err != nil {
		return Metadata{}, err
	}

	obj, _ := normalized.v.(map[string]any)
	maps.Copy(base, obj)

	return Metadata{v: base}, nil
}

// WithoutKey returns the object with key removed. Removing a key that is not
// present returns an unchanged copy.
func (m Metadata) WithoutKey(key string) (Metadata, error) {
	if key == "" {
		return Metadata{}, ErrEmptyMetadataKey
	}

	obj, ok := m.Object()
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrMetadataNotObject, m.Kind())
	}

	delete(obj, key)

	return Metadata{v: obj}, nil
}

// String returns the compact JSON encoding.
func (m Metadata) String() string {
	data, err := json.Marshal(m.v)
	if err != nil {
		return fmt.Sprintf("%v", m.v)
	}

	return string(data)
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(m.v)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMetadata(data)
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// MarshalYAML renders the value as plain YAML rather than its struct form.
func (m Metadata) MarshalYAML() (interface{}, error) {
	return yamlValue(m.v), nil
}

func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}

		if f, err := t.Float64(); err == nil {
			return f
		}

		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlValue(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlValue(e)
		}

		return out
	default:
		return t
	}
}

func clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}

		return out
	default:
		return t
	}
}
