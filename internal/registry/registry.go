// Package registry implements the process-wide component registry: a
// package-level map guarded by a sync.RWMutex, populated by each
// component package's init() via Register, and read by the engine
// and CLI. Registered once at startup and never mutated afterward.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/retry"
	"github.com/ridgeline-security/execengine/internal/schema"
)

// InlineFunc is the signature every inline-runner component implements.
type InlineFunc = dispatch.InlineFunc

// Definition is everything the engine needs to know about a component:
// its identity, its schemas, how it runs, and how failures are retried.
type Definition struct {
	ID              string
	Label           string
	Description     string
	InputSchema     schema.Ports
	OutputSchema    schema.Ports
	ParameterSchema schema.Ports
	Runner          dispatch.RunnerConfig
	Inline          InlineFunc
	// RetryPolicy governs retries for this component's invocations. The
	// zero value means "use retry.DefaultPolicy()" — callers invoking a
	// component should treat MaxAttempts == 0 as unset rather than "never
	// retry".
	RetryPolicy retry.Policy
}

func (d *Definition) selfCheck() error {
	if d.ID == "" {
		return fmt.Errorf("component definition missing id")
	}
	switch d.Runner.Kind {
	case dispatch.RunnerInline:
		if d.Inline == nil {
			return fmt.Errorf("component %q: runner kind inline requires Inline function", d.ID)
		}
	case dispatch.RunnerDocker:
		if d.Runner.Docker == nil {
			return fmt.Errorf("component %q: runner kind docker requires Docker config", d.ID)
		}
	default:
		return fmt.Errorf("component %q: unsupported runner kind %q", d.ID, d.Runner.Kind)
	}
	return nil
}

var (
	mu         sync.RWMutex
	components = make(map[string]*Definition)
)

// Register adds a component definition to the catalog. It panics on a
// malformed definition or a duplicate id: both are programmer errors
// caught at process startup via each component package's init(), never
// at request time.
func Register(def *Definition) {
	if err := def.selfCheck(); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := components[def.ID]; exists {
		panic(fmt.Sprintf("registry: component %q already registered", def.ID))
	}
	components[def.ID] = def
}

// Get returns the definition for id, or an error of kind Configuration if
// no component with that id has been registered.
func Get(id string) (*Definition, error) {
	mu.RLock()
	defer mu.RUnlock()
	def, ok := components[id]
	if !ok {
		return nil, errs.New(errs.Configuration, fmt.Sprintf("no component registered with id %q", id))
	}
	return def, nil
}

// List returns every registered component id in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(components))
	for id := range components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// reset clears the registry. Test-only: unexported so only this
// package's tests can reach it via an internal test file.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	components = make(map[string]*Definition)
}
