package schema

import (
	"fmt"
	"strings"

	"github.com/ridgeline-security/execengine/internal/errs"
)

// ListSchema is KindList: a homogeneous list of Element. It
// accepts either an actual JSON array, a bare scalar (wrapped into a
// single-element list), or a comma-separated string (split, trimmed,
// empties dropped) — the shape a form field sends for a "regions" port.
type ListSchema struct {
	meta
	Element Schema
}

// List starts a list schema builder over the given element schema.
func List(element Schema) *ListSchema {
	return &ListSchema{Element: element}
}

func (s *ListSchema) Label(v string) *ListSchema       { s.label = v; return s }
func (s *ListSchema) Description(v string) *ListSchema { s.description = v; return s }
func (s *ListSchema) Required() *ListSchema            { s.required = true; return s }
func (s *ListSchema) WithDefault(v []interface{}) *ListSchema {
	s.defaultValue, s.hasDefault = v, true
	return s
}

func (s *ListSchema) Kind() Kind { return KindList }

func (s *ListSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	if handled, value, err := requiredCheck(s.meta, raw); handled {
		return value, err
	}

	items := toSlice(raw)
	result := make([]interface{}, 0, len(items))
	fel := errs.NewFieldErrorList()
	for i, item := range items {
		v, err := s.Element.Parse(item)
		if err != nil {
			fel.Add(fmt.Sprintf("[%d]", i), err.Message)
			continue
		}
		if v == nil {
			continue
		}
		result = append(result, v)
	}
	if fel.HasErrors() {
		return nil, fel.ToError("list element validation failed")
	}
	return result, nil
}

func (s *ListSchema) Default() interface{} {
	if s.hasDefault {
		return s.defaultValue
	}
	return []interface{}{}
}

func (s *ListSchema) Describe() Descriptor {
	d := s.meta.describe(KindList)
	if s.Element != nil {
		elem := s.Element.Describe()
		d.Element = &elem
	}
	return d
}

// toSlice normalizes any of the accepted list shapes into []interface{}.
func toSlice(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []interface{}{v}
	}
}
