// Package contract implements the named credential contract catalog: a
// fixed set of JSON-Schema documents that schema.ContractSchema values
// validate against. Each document is compiled once and cached behind a
// sync.Once, the same way an exchange or broker client validator caches
// a gojsonschema.JSONLoader rather than re-parsing a schema document on
// every call.
package contract

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ridgeline-security/execengine/internal/errs"
)

// Names of the built-in catalog entries. There is exactly one canonical
// AWS credential entry; nothing else in this package defines a second
// one under a different name.
const (
	AWSCredential       = "core.credential.aws"
	AtlassianCredential = "core.credential.atlassian"
	SupabaseCredential  = "core.credential.supabase"
)

var documents = map[string]string{
	AWSCredential: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["accessKeyId", "secretAccessKey", "region"],
		"additionalProperties": true,
		"properties": {
			"accessKeyId":     {"type": "string", "minLength": 1},
			"secretAccessKey": {"type": "string", "minLength": 1},
			"sessionToken":    {"type": "string"},
			"region":          {"type": "string", "minLength": 1}
		}
	}`,
	AtlassianCredential: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["baseUrl", "accessToken"],
		"additionalProperties": true,
		"properties": {
			"baseUrl":     {"type": "string", "minLength": 1, "format": "uri"},
			"accessToken": {"type": "string", "minLength": 1}
		}
	}`,
	SupabaseCredential: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["projectUrl", "serviceRoleKey"],
		"additionalProperties": true,
		"properties": {
			"projectUrl":     {"type": "string", "minLength": 1, "format": "uri"},
			"serviceRoleKey": {"type": "string", "minLength": 1}
		}
	}`,
}

var (
	loaders     = map[string]gojsonschema.JSONLoader{}
	loaderOnces = map[string]*sync.Once{}
	loaderErrs  = map[string]error{}
	mu          sync.Mutex
)

func init() {
	for name := range documents {
		loaderOnces[name] = &sync.Once{}
	}
}

func getLoader(name string) (gojsonschema.JSONLoader, error) {
	mu.Lock()
	once, known := loaderOnces[name]
	mu.Unlock()
	if !known {
		return nil, fmt.Errorf("contract: unknown contract %q", name)
	}
	once.Do(func() {
		loader := gojsonschema.NewStringLoader(documents[name])
		if _, err := loader.LoadJSON(); err != nil {
			loaderErrs[name] = fmt.Errorf("contract: failed to compile %q: %w", name, err)
			return
		}
		loaders[name] = loader
	})
	if err := loaderErrs[name]; err != nil {
		return nil, err
	}
	return loaders[name], nil
}

// Validate checks value against the named contract's JSON-Schema
// document, returning a field-qualified Validation error on mismatch.
func Validate(name string, value map[string]interface{}) *errs.Error {
	loader, err := getLoader(name)
	if err != nil {
		return errs.Wrap(errs.Configuration, err, "contract not registered")
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return errs.Wrap(errs.Validation, err, "contract value is not JSON-serializable")
	}
	documentLoader := gojsonschema.NewBytesLoader(encoded)

	result, err := gojsonschema.Validate(loader, documentLoader)
	if err != nil {
		return errs.Wrap(errs.Validation, err, "contract validation failed to run")
	}
	if result.Valid() {
		return nil
	}

	fel := errs.NewFieldErrorList()
	for _, desc := range result.Errors() {
		fel.Add(desc.Field(), desc.Description())
	}
	return fel.ToError(fmt.Sprintf("value does not satisfy contract %q", name))
}

// Known reports whether name is a registered contract.
func Known(name string) bool {
	_, ok := documents[name]
	return ok
}

// Names returns every registered contract name.
func Names() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	return names
}
