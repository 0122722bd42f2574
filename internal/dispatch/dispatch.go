// Package dispatch implements Runner Dispatch: the tagged union between
// an inline (in-process) component and a Docker-backed one, and the
// Prometheus instrumentation wrapping every invocation. A single
// switch over the runner kind picks the path to take, and a single
// output normalizer tries an ordered list of interpretations against
// the output shapes a component's declared schema can satisfy, rather
// than requiring each component to hand-parse its own output.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/schema"
	"github.com/ridgeline-security/execengine/internal/volume"
)

// RunnerKind is the closed set of ways a component can execute.
type RunnerKind string

const (
	RunnerInline RunnerKind = "inline"
	RunnerDocker RunnerKind = "docker"
)

// InlineFunc is the signature every inline-runner component implements:
// a plain Go function over the execution context, parsed parameters, and
// parsed inputs.
type InlineFunc func(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string]interface{}, *errs.Error)

// DockerBuildFunc composes the concrete container invocation for one
// run from its parsed parameters and inputs — e.g. turning a
// domains list into Subfinder's argv. volumeName is the isolated volume
// already staged from VolumeFiles, or empty if the component declared
// none; Build uses volume.TargetPath to reference files inside it and
// does not need to mount it itself — Run does that automatically.
type DockerBuildFunc func(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error)

// DockerParseFunc interprets a completed container run into the
// component's output shape. volumeFiles holds the contents of every path
// named in ReadBackFiles that existed in the isolated volume after the
// container exited (nil if ReadBackFiles was empty). Returning (nil, nil)
// tells Run to fall back to the generic output normalizer.
type DockerParseFunc func(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error)

// VolumeFilesFunc produces the set of files (relative path -> content)
// to stage into a fresh isolated volume before the container runs.
type VolumeFilesFunc func(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error)

// SkipFunc lets a component short-circuit a docker run entirely — e.g. an
// empty target list needs no container at all. Returning skip=true stops
// Run before any volume is staged or container created; output is
// returned as-is.
type SkipFunc func(params, inputs map[string]interface{}) (output map[string]interface{}, skip bool)

// DockerRunnerSpec is the docker variant of RunnerConfig. When
// VolumeFiles is set, Run stages a fresh per-invocation isolated volume
// before calling Build and tears it down after the container exits,
// regardless of outcome. When ReadBackFiles is set, Run reads those paths
// out of the volume (after the container exits, before cleanup) and
// passes their contents to Parse — for components like Prowler and the
// Supabase Scanner that write their report into the volume rather than
// stdout.
type DockerRunnerSpec struct {
	Skip          SkipFunc
	VolumeFiles   VolumeFilesFunc
	ReadBackFiles []string
	Build         DockerBuildFunc
	Parse         DockerParseFunc
}

// RunnerConfig is the inline|docker tagged union.
type RunnerConfig struct {
	Kind   RunnerKind
	Docker *DockerRunnerSpec
}

var (
	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execengine_component_invocations_total",
			Help: "Total component invocations by component id, runner kind, and outcome.",
		},
		[]string{"component", "runner", "outcome"},
	)
	invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "execengine_component_invocation_duration_seconds",
			Help:    "Component invocation duration in seconds by component id and runner kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component", "runner"},
	)
)

// Register adds the dispatcher's metrics to reg. Call once at process
// startup against the registry cmd/worker exposes on /metrics.
func Register(reg prometheus.Registerer) error {
	if err := reg.Register(invocationsTotal); err != nil {
		return err
	}
	return reg.Register(invocationDuration)
}

// Dispatcher runs components according to their declared RunnerConfig.
type Dispatcher struct {
	docker  *client.Client
	volumes *volume.Manager
}

// New creates a dispatcher backed by the given Docker client and volume
// manager. Either may be nil if the process only ever runs inline
// components or components that never declare VolumeFiles.
func New(cli *client.Client, volumes *volume.Manager) *Dispatcher {
	return &Dispatcher{docker: cli, volumes: volumes}
}

// Run executes one component invocation end to end: dispatch by runner
// kind, time it, classify the outcome for metrics, and normalize the
// result against outputSchema.
func (d *Dispatcher) Run(
	ctx *execctx.Context,
	componentID string,
	cfg RunnerConfig,
	outputSchema schema.Ports,
	inline InlineFunc,
	params, inputs map[string]interface{},
) (map[string]interface{}, *errs.Error) {
	start := time.Now()
	result, runErr := d.dispatch(ctx, componentID, cfg, outputSchema, inline, params, inputs)
	invocationDuration.WithLabelValues(componentID, string(cfg.Kind)).Observe(time.Since(start).Seconds())

	outcome := "success"
	if runErr != nil {
		outcome = string(runErr.Kind)
	}
	invocationsTotal.WithLabelValues(componentID, string(cfg.Kind), outcome).Inc()
	return result, runErr
}

func (d *Dispatcher) dispatch(
	ctx *execctx.Context,
	componentID string,
	cfg RunnerConfig,
	outputSchema schema.Ports,
	inline InlineFunc,
	params, inputs map[string]interface{},
) (map[string]interface{}, *errs.Error) {
	switch cfg.Kind {
	case RunnerInline:
		if inline == nil {
			return nil, errs.New(errs.Configuration, fmt.Sprintf("component %q declares inline runner but has no implementation", componentID))
		}
		return inline(ctx, params, inputs)

	case RunnerDocker:
		if cfg.Docker == nil || cfg.Docker.Build == nil {
			return nil, errs.New(errs.Configuration, fmt.Sprintf("component %q declares docker runner but has no build function", componentID))
		}
		return d.runDocker(ctx, componentID, cfg.Docker, outputSchema, params, inputs)

	default:
		return nil, errs.New(errs.Configuration, fmt.Sprintf("component %q has unsupported runner kind %q", componentID, cfg.Kind))
	}
}

func (d *Dispatcher) runDocker(
	ctx *execctx.Context,
	componentID string,
	spec *DockerRunnerSpec,
	outputSchema schema.Ports,
	params, inputs map[string]interface{},
) (map[string]interface{}, *errs.Error) {
	if spec.Skip != nil {
		if output, skip := spec.Skip(params, inputs); skip {
			return output, nil
		}
	}

	var volumeName string
	if spec.VolumeFiles != nil {
		if d.volumes == nil {
			return nil, errs.New(errs.Configuration, fmt.Sprintf("component %q requires an isolated volume but no volume manager is configured", componentID))
		}
		files, err := spec.VolumeFiles(ctx, params, inputs)
		if err != nil {
			return nil, errs.Wrap(errs.Configuration, err, "failed to prepare isolated volume contents")
		}
		name, verr := d.volumes.Initialize(contextOf(ctx), ctx.TenantID, ctx.RunID, files)
		if verr != nil {
			return nil, verr
		}
		volumeName = name
		defer func() {
			if cerr := d.volumes.Cleanup(contextOf(ctx), volumeName); cerr != nil {
				ctx.Logger().Warn("failed to clean up isolated volume",
					zap.String("volume", volumeName), zap.Error(cerr))
			}
		}()
	}

	runConfig, err := spec.Build(ctx, params, inputs, volumeName)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, err, "failed to build container invocation")
	}
	if volumeName != "" && !hasVolumeMount(runConfig, volumeName) {
		runConfig.Mounts = append(runConfig.Mounts, volume.GetVolumeConfig(volumeName, false))
	}
	if len(runConfig.Entrypoint) == 0 && len(runConfig.Argv) == 0 {
		return nil, errs.New(errs.Configuration, fmt.Sprintf("component %q built an empty container invocation", componentID))
	}
	if runConfig.NamePrefix == "" {
		runConfig.NamePrefix = componentID
	}
	if runConfig.Logger == nil {
		runConfig.Logger = ctx.Logger()
	}
	if runConfig.Labels == nil {
		runConfig.Labels = map[string]string{}
	}
	runConfig.Labels["studio.run_id"] = ctx.RunID
	runConfig.Labels["studio.tenant_id"] = ctx.TenantID
	runConfig.Labels["studio.component"] = componentID

	if d.docker == nil {
		return nil, errs.New(errs.Configuration, "no docker client configured")
	}
	result, runErr := dockerrun.Run(contextOf(ctx), d.docker, runConfig)
	if runErr != nil {
		return nil, runErr
	}

	var volumeFiles map[string][]byte
	if len(spec.ReadBackFiles) > 0 {
		if volumeName == "" {
			return nil, errs.New(errs.Configuration, fmt.Sprintf("component %q declares ReadBackFiles but no isolated volume was staged", componentID))
		}
		files, verr := d.volumes.ReadFiles(contextOf(ctx), volumeName, spec.ReadBackFiles)
		if verr != nil {
			return nil, verr
		}
		volumeFiles = files
	}

	if spec.Parse != nil {
		if output, parseErr := spec.Parse(result, volumeFiles); output != nil || parseErr != nil {
			return output, parseErr
		}
	}
	return normalizeOutput(result, outputSchema)
}

func hasVolumeMount(cfg dockerrun.Config, volumeName string) bool {
	for _, m := range cfg.Mounts {
		if m.Source == volumeName {
			return true
		}
	}
	return false
}

func contextOf(ctx *execctx.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx.StdContext()
}

// normalizeOutput tries, in order, a typed-object interpretation (stdout
// is a single JSON object), then a framed-object interpretation (a
// marker-delimited JSON payload embedded in otherwise free-form output),
// then a bare string interpretation, returning whichever first validates
// against outputSchema.
func normalizeOutput(result *dockerrun.Result, outputSchema schema.Ports) (map[string]interface{}, *errs.Error) {
	trimmed := strings.TrimSpace(string(result.Stdout))

	if candidate, ok := asTypedObject(trimmed); ok {
		if parsed, err := outputSchema.Parse(candidate); err == nil {
			return parsed, nil
		}
	}

	if candidate, ok := asFramedObject(trimmed); ok {
		if parsed, err := outputSchema.Parse(candidate); err == nil {
			return parsed, nil
		}
	}

	stringCandidate := map[string]interface{}{"output": trimmed}
	if parsed, err := outputSchema.Parse(stringCandidate); err == nil {
		return parsed, nil
	}

	return nil, errs.New(errs.Validation, "component output did not match its declared output schema").
		WithDetails(map[string]interface{}{"preview": preview(trimmed)})
}

func asTypedObject(s string) (map[string]interface{}, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

const (
	framedStart = "===STUDIO_RESULT_START==="
	framedEnd   = "===STUDIO_RESULT_END==="
)

func asFramedObject(s string) (map[string]interface{}, bool) {
	start := strings.Index(s, framedStart)
	if start < 0 {
		return nil, false
	}
	start += len(framedStart)
	end := strings.Index(s[start:], framedEnd)
	if end < 0 {
		return nil, false
	}
	body := strings.TrimSpace(s[start : start+end])
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func preview(s string) string {
	const max = 256
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
