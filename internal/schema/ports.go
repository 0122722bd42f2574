package schema

import "github.com/ridgeline-security/execengine/internal/errs"

// Ports is a named set of schema nodes: the shape of a component's
// inputSchema, outputSchema, or parameterSchema. It is not
// itself a Kind in the closed set — it is the aggregate a component
// definition hangs its ports off of.
type Ports map[string]Schema

// Parse validates and coerces every named port in raw, collecting
// per-port field errors into a single Validation error rather than
// failing on the first bad port.
func (p Ports) Parse(raw map[string]interface{}) (map[string]interface{}, *errs.Error) {
	result := make(map[string]interface{}, len(p))
	fel := errs.NewFieldErrorList()
	for name, node := range p {
		v, err := node.Parse(raw[name])
		if err != nil {
			fel.Add(name, err.Message)
			continue
		}
		if v == nil {
			continue
		}
		result[name] = v
	}
	if fel.HasErrors() {
		return nil, fel.ToError("port validation failed")
	}
	return result, nil
}

// Describe projects every port for UI/introspection consumption.
func (p Ports) Describe() map[string]Descriptor {
	out := make(map[string]Descriptor, len(p))
	for name, node := range p {
		out[name] = node.Describe()
	}
	return out
}
