package schema

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ridgeline-security/execengine/internal/errs"
)

// TextSchema is KindText: accepts a string, trims whitespace, and treats
// the trimmed-empty result as "not provided" for the required/default
// check.
type TextSchema struct {
	meta
	// Enum, when non-empty, restricts accepted values to this set.
	Enum []string
}

// Text starts a text schema builder.
func Text() *TextSchema { return &TextSchema{} }

func (s *TextSchema) Label(v string) *TextSchema       { s.label = v; return s }
func (s *TextSchema) Description(v string) *TextSchema { s.description = v; return s }
func (s *TextSchema) Required() *TextSchema            { s.required = true; return s }
func (s *TextSchema) WithDefault(v string) *TextSchema {
	s.defaultValue, s.hasDefault = v, true
	return s
}
func (s *TextSchema) WithEnum(values ...string) *TextSchema { s.Enum = values; return s }
func (s *TextSchema) WithEditorHint(v interface{}) *TextSchema {
	s.editorHint = v
	return s
}

func (s *TextSchema) Kind() Kind { return KindText }

func (s *TextSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	var trimmed string
	if str := stringify(raw); str != nil {
		trimmed = strings.TrimSpace(*str)
	}
	var forCheck interface{}
	if trimmed != "" {
		forCheck = trimmed
	}
	if handled, value, err := requiredCheck(s.meta, forCheck); handled {
		return value, err
	}
	if len(s.Enum) > 0 && !contains(s.Enum, trimmed) {
		return nil, errs.New(errs.Validation, "value is not one of the allowed options").
			WithDetails(map[string]interface{}{"allowed": s.Enum})
	}
	return trimmed, nil
}

func (s *TextSchema) Default() interface{} {
	if s.hasDefault {
		return s.defaultValue
	}
	return ""
}

func (s *TextSchema) Describe() Descriptor { return s.meta.describe(KindText) }

// stringify coerces a scalar JSON-decoded value to a string pointer,
// returning nil for nil input. Non-scalar values are left for Parse to
// reject via requiredCheck's isEmpty/required path.
func stringify(raw interface{}) *string {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(v)
		return &s
	default:
		return nil
	}
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// NumberSchema is KindNumber: accepts a JSON number or a numeric string.
type NumberSchema struct {
	meta
	Min, Max     *float64
	hasMin       bool
	hasMax       bool
}

func Number() *NumberSchema { return &NumberSchema{} }

func (s *NumberSchema) Label(v string) *NumberSchema       { s.label = v; return s }
func (s *NumberSchema) Description(v string) *NumberSchema { s.description = v; return s }
func (s *NumberSchema) Required() *NumberSchema            { s.required = true; return s }
func (s *NumberSchema) WithDefault(v float64) *NumberSchema {
	s.defaultValue, s.hasDefault = v, true
	return s
}
func (s *NumberSchema) WithMin(v float64) *NumberSchema { s.Min, s.hasMin = &v, true; return s }
func (s *NumberSchema) WithMax(v float64) *NumberSchema { s.Max, s.hasMax = &v, true; return s }

func (s *NumberSchema) Kind() Kind { return KindNumber }

func (s *NumberSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	if handled, value, err := requiredCheck(s.meta, raw); handled {
		return value, err
	}
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case string:
		parsed, parseErr := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if parseErr != nil {
			return nil, errs.New(errs.Validation, "value is not a number")
		}
		n = parsed
	default:
		return nil, errs.New(errs.Validation, "value is not a number")
	}
	if s.hasMin && n < *s.Min {
		return nil, errs.New(errs.Validation, "value is below the minimum")
	}
	if s.hasMax && n > *s.Max {
		return nil, errs.New(errs.Validation, "value is above the maximum")
	}
	return n, nil
}

func (s *NumberSchema) Default() interface{} {
	if s.hasDefault {
		return s.defaultValue
	}
	return float64(0)
}

func (s *NumberSchema) Describe() Descriptor { return s.meta.describe(KindNumber) }

// BooleanSchema is KindBoolean: accepts a JSON bool or a truthy/falsy
// string ("true"/"false"/"1"/"0").
type BooleanSchema struct{ meta }

func Boolean() *BooleanSchema { return &BooleanSchema{} }

func (s *BooleanSchema) Label(v string) *BooleanSchema       { s.label = v; return s }
func (s *BooleanSchema) Description(v string) *BooleanSchema { s.description = v; return s }
func (s *BooleanSchema) Required() *BooleanSchema            { s.required = true; return s }
func (s *BooleanSchema) WithDefault(v bool) *BooleanSchema {
	s.defaultValue, s.hasDefault = v, true
	return s
}

func (s *BooleanSchema) Kind() Kind { return KindBoolean }

func (s *BooleanSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	if handled, value, err := requiredCheck(s.meta, raw); handled {
		return value, err
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
	}
	return nil, errs.New(errs.Validation, "value is not a boolean")
}

func (s *BooleanSchema) Default() interface{} {
	if s.hasDefault {
		return s.defaultValue
	}
	return false
}

func (s *BooleanSchema) Describe() Descriptor { return s.meta.describe(KindBoolean) }

// JSONSchema is KindJSON: accepts any JSON-decoded value as-is, or a
// JSON-encoded string which is decoded before acceptance.
type JSONSchema struct{ meta }

func JSON() *JSONSchema { return &JSONSchema{} }

func (s *JSONSchema) Label(v string) *JSONSchema       { s.label = v; return s }
func (s *JSONSchema) Description(v string) *JSONSchema { s.description = v; return s }
func (s *JSONSchema) Required() *JSONSchema            { s.required = true; return s }
func (s *JSONSchema) WithDefault(v interface{}) *JSONSchema {
	s.defaultValue, s.hasDefault = v, true
	return s
}

func (s *JSONSchema) Kind() Kind { return KindJSON }

func (s *JSONSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	if handled, value, err := requiredCheck(s.meta, raw); handled {
		return value, err
	}
	if str, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(str), &decoded); err == nil {
			return decoded, nil
		}
		return str, nil
	}
	return raw, nil
}

func (s *JSONSchema) Default() interface{} {
	if s.hasDefault {
		return s.defaultValue
	}
	return nil
}

func (s *JSONSchema) Describe() Descriptor { return s.meta.describe(KindJSON) }
