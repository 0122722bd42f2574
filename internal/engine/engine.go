// Package engine implements the orchestrator-facing entrypoint:
// invoke(componentId, rawInputs, rawParams, ctx) -> outputs | Error. It
// wires together the registry, the schema engine, the dispatcher, and
// the retry controller without any of those packages depending on each
// other in a cycle.
package engine

import (
	"fmt"

	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/retry"
)

// Invoker runs registered components end to end: parse inputs/params,
// apply retry policy around the dispatcher, validate outputs.
type Invoker struct {
	dispatcher *dispatch.Dispatcher
}

// New creates an Invoker bound to a dispatcher.
func New(dispatcher *dispatch.Dispatcher) *Invoker {
	return &Invoker{dispatcher: dispatcher}
}

// Invoke looks up componentID, validates rawInputs/rawParams against its
// declared schemas, runs it under its retry policy, and validates the
// result against its output schema before returning it.
func (inv *Invoker) Invoke(
	ctx *execctx.Context,
	componentID string,
	rawInputs, rawParams map[string]interface{},
) (map[string]interface{}, *errs.Error) {
	def, err := registry.Get(componentID)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, err, fmt.Sprintf("no component registered with id %q", componentID))
	}

	compCtx := ctx.WithComponent(componentID)

	inputs, verr := def.InputSchema.Parse(rawInputs)
	if verr != nil {
		return nil, verr
	}
	params, verr := def.ParameterSchema.Parse(rawParams)
	if verr != nil {
		return nil, verr
	}

	policy := def.RetryPolicy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}

	outputs, runErr := retry.Run(compCtx.StdContext(), policy, compCtx.Logger(), func(attempt int) (map[string]interface{}, *errs.Error) {
		compCtx.Progress("invocation attempt", map[string]interface{}{"attempt": attempt})
		return inv.dispatcher.Run(compCtx, componentID, def.Runner, def.OutputSchema, def.Inline, params, inputs)
	})
	if runErr != nil {
		return nil, runErr
	}

	return def.OutputSchema.Parse(outputs)
}
