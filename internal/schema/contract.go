package schema

import (
	"github.com/ridgeline-security/execengine/internal/contract"
	"github.com/ridgeline-security/execengine/internal/errs"
)

// ContractSchema is KindContract: a value must validate against a named
// JSON-Schema document registered in internal/contract (the
// port & contract catalog). Components declare a port as
// contract("core.credential.aws") rather than re-deriving an ad hoc
// object shape per component.
type ContractSchema struct {
	meta
	Name string
}

// Contract starts a contract schema builder bound to a catalog name.
func Contract(name string) *ContractSchema {
	return &ContractSchema{Name: name}
}

func (s *ContractSchema) Label(v string) *ContractSchema       { s.label = v; return s }
func (s *ContractSchema) Description(v string) *ContractSchema { s.description = v; return s }
func (s *ContractSchema) Required() *ContractSchema            { s.required = true; return s }

func (s *ContractSchema) Kind() Kind { return KindContract }

func (s *ContractSchema) Parse(raw interface{}) (interface{}, *errs.Error) {
	if handled, value, err := requiredCheck(s.meta, raw); handled {
		return value, err
	}
	value, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errs.New(errs.Validation, "contract value must be an object").
			WithDetails(map[string]interface{}{"contract": s.Name})
	}
	if err := contract.Validate(s.Name, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *ContractSchema) Default() interface{} { return nil }

func (s *ContractSchema) Describe() Descriptor {
	d := s.meta.describe(KindContract)
	d.ContractName = s.Name
	return d
}
