// Package execctx implements the Execution Context: the bundle of
// runId, tenantId, logger, progress sink, and secret resolver that flows
// into every component invocation. It carries a single typed value on a
// context.Context rather than one context key per field, so callers
// only need to know about one key to recover the whole bundle.
package execctx

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-security/execengine/internal/logger"
)

// ProgressEvent is a single structured progress update a component may
// emit while running.
type ProgressEvent struct {
	Timestamp time.Time
	Message   string
	Fields    map[string]interface{}
}

// SecretResolver resolves a secret reference (vault path, env var name,
// or opaque id) to its value. Components never see raw credential
// storage; they call this through Context.Secrets.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Context is the execution context threaded through a single component
// invocation. It is not itself a context.Context; it is carried by one.
type Context struct {
	RunID    string
	TenantID string

	logger   *zap.Logger
	progress chan<- ProgressEvent
	secrets  SecretResolver

	stdCtx context.Context
}

type contextKey string

const execKey contextKey = "execctx"

// New creates an execution context. progress may be nil if the caller
// does not want to observe progress events; sends to a full channel are
// dropped rather than blocking the component.
func New(stdCtx context.Context, runID, tenantID string, progress chan<- ProgressEvent, secrets SecretResolver) *Context {
	loggerCtx := logger.WithRun(stdCtx, runID, tenantID)
	return &Context{
		RunID:    runID,
		TenantID: tenantID,
		logger:   logger.GetLogger(loggerCtx),
		progress: progress,
		secrets:  secrets,
		stdCtx:   stdCtx,
	}
}

// WithContext attaches ec to a context.Context for passage through
// layers that only accept the standard interface.
func WithContext(parent context.Context, ec *Context) context.Context {
	return context.WithValue(parent, execKey, ec)
}

// FromContext retrieves the execution context previously attached by
// WithContext, or nil if none is present.
func FromContext(ctx context.Context) *Context {
	ec, _ := ctx.Value(execKey).(*Context)
	return ec
}

// Done returns the underlying cancellation/deadline signal.
func (ec *Context) Done() <-chan struct{} { return ec.stdCtx.Done() }

// StdContext returns the underlying context.Context for passing to
// Docker SDK calls and other stdlib-shaped APIs.
func (ec *Context) StdContext() context.Context { return ec.stdCtx }

// Logger returns the run-scoped structured logger.
func (ec *Context) Logger() *zap.Logger { return ec.logger }

// WithComponent returns a copy of the context whose logger carries a
// component field, used once dispatch knows which component is running.
func (ec *Context) WithComponent(componentID string) *Context {
	clone := *ec
	clone.logger = ec.logger.With(zap.String("component", componentID))
	return &clone
}

// Progress emits a non-blocking progress event. A nil channel drops the
// event silently; a full channel drops it with a warning log rather than
// stalling the component.
func (ec *Context) Progress(message string, fields map[string]interface{}) {
	if ec.progress == nil {
		return
	}
	event := ProgressEvent{Timestamp: time.Now(), Message: message, Fields: fields}
	select {
	case ec.progress <- event:
	default:
		ec.logger.Warn("progress channel full, dropping event", zap.String("message", message))
	}
}

// ResolveSecret resolves a secret reference through the configured
// resolver. Returns an error if no resolver was configured.
func (ec *Context) ResolveSecret(ref string) (string, error) {
	if ec.secrets == nil {
		return "", fmt.Errorf("execctx: no secret resolver configured")
	}
	return ec.secrets.Resolve(ec.stdCtx, ref)
}
