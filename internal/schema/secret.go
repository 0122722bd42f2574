package schema

import "github.com/ridgeline-security/execengine/internal/errs"

// SecretSchema is KindSecret: a string-valued port whose value is never
// logged or persisted by the engine. The schema layer only validates
// shape and performs no secret resolution.
type SecretSchema struct{ meta }

// Secret starts a secret schema builder.
func Secret() *SecretSchema { return &SecretSchema{} }

func (s *SecretSchema) Label(v string) *SecretSchema       { s.label = v; return s }
func (s *SecretSchema) Description(v string) *SecretSchema { s.description = v; return s }
func (s *SecretSchema) Required() *SecretSchema            { s.required = true; return s }

func (s *SecretSchema) Kind() Kind { return KindSecret }

func (s *SecretSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	if handled, value, err := requiredCheck(s.meta, raw); handled {
		return value, err
	}
	v, ok := raw.(string)
	if !ok {
		return nil, errs.New(errs.Validation, "secret value must be a string")
	}
	return v, nil
}

func (s *SecretSchema) Default() interface{} { return "" }

// Describe never includes DefaultValue even if one were set, and never
// leaks the resolved value: secrets describe only their presence.
func (s *SecretSchema) Describe() Descriptor {
	d := s.meta.describe(KindSecret)
	d.DefaultValue = nil
	return d
}
