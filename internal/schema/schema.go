// Package schema implements the declarative port/parameter schema engine:
// a small closed set of node kinds, each able to parse, default, and
// describe itself. Coercions (CSV splitting, scalar-to-list wrapping,
// whitespace trimming, empty-to-undefined) are mandatory and applied
// before validation, the way gojsonschema-backed validators
// normalize a config map before checking it — except here the
// normalization is itself part of the contract, not a preprocessing
// step bolted on by each caller.
package schema

import "github.com/ridgeline-security/execengine/internal/errs"

// Kind is the closed set of port connection kinds.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindJSON     Kind = "json"
	KindList     Kind = "list"
	KindSecret   Kind = "secret"
	KindContract Kind = "contract"
)

// Descriptor is the opaque-to-the-core projection of a schema node used by
// UIs (editor hints, labels). The engine itself never interprets these
// fields beyond carrying them.
type Descriptor struct {
	Kind         Kind        `json:"kind"`
	Label        string      `json:"label,omitempty"`
	Description  string      `json:"description,omitempty"`
	Required     bool        `json:"required"`
	DefaultValue interface{} `json:"defaultValue,omitempty"`
	ContractName string      `json:"contractName,omitempty"`
	Element      *Descriptor `json:"element,omitempty"`
	EditorHint   interface{} `json:"editorHint,omitempty"`
}

// Schema is implemented by every port/parameter node.
type Schema interface {
	Kind() Kind
	// Parse validates and coerces a raw decoded JSON value (map, slice,
	// string, float64, bool, or nil) into the node's canonical Go value.
	// It returns a *errs.Error of kind Validation on failure.
	Parse(raw interface{}) (interface{}, *errs.Error)
	// Default returns the node's zero/default value. Parse does not call
	// it: an absent optional port is omitted unless a default was declared.
	Default() interface{}
	// Describe projects the node for UI consumption.
	Describe() Descriptor
}

// meta holds the fields common to every schema node.
type meta struct {
	label        string
	description  string
	required     bool
	defaultValue interface{}
	hasDefault   bool
	editorHint   interface{}
}

func (m meta) describe(kind Kind) Descriptor {
	d := Descriptor{
		Kind:        kind,
		Label:       m.label,
		Description: m.description,
		Required:    m.required,
		EditorHint:  m.editorHint,
	}
	if m.hasDefault {
		d.DefaultValue = m.defaultValue
	}
	return d
}

// isEmpty reports whether a raw value should be treated as "not provided"
// per the "normalize empty to undefined" coercion rule.
func isEmpty(raw interface{}) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return s == ""
	}
	if arr, ok := raw.([]interface{}); ok {
		return len(arr) == 0
	}
	return false
}

// requiredCheck centralizes the required/default/empty handling shared by
// every leaf schema's Parse implementation.
func requiredCheck(m meta, raw interface{}) (handled bool, value interface{}, err *errs.Error) {
	if !isEmpty(raw) {
		return false, nil, nil
	}
	if m.required {
		return true, nil, errs.New(errs.Validation, "value is required")
	}
	if m.hasDefault {
		return true, m.defaultValue, nil
	}
	return true, nil, nil
}
