// Package dockerrun implements the Docker Runner: composing a container
// from a component's declared image/entrypoint/argv/env/volumes/network,
// running it to completion under a wall-clock timeout, demultiplexing
// its output, and classifying its exit code. Container lifecycle goes
// through the standard ContainerCreate/Start/Wait/Logs calls plus
// stdcopy demultiplexing, generalized to an arbitrary component image,
// and golang.org/x/sync/errgroup coordinates the container-wait and
// log-streaming goroutines under one cancelable group instead of a
// single hand-rolled select loop.
package dockerrun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ridgeline-security/execengine/internal/errs"
)

// Config composes one component invocation into a container.
type Config struct {
	Image      string
	Platform   string
	Entrypoint []string
	Argv       []string
	Env        map[string]string
	Mounts     []mount.Mount
	Network    string
	Labels     map[string]string

	// Stdin, when non-nil, is written to the container's standard input
	// and the write side closed immediately after — for components that
	// take their configuration as a piped document rather than argv or a
	// mounted file (e.g. Notify's base64-encoded provider config).
	Stdin []byte

	// TimeoutSeconds bounds wall-clock run time. Every component must
	// declare a positive value; Run rejects zero or negative as Validation.
	TimeoutSeconds int

	// ExpectedExitCodes lists non-zero exit codes a component declares
	// as a signal rather than a failure (e.g. Prowler 3 "findings
	// present", TruffleHog 183 "verified secret found").
	ExpectedExitCodes []int

	// NamePrefix is used to build a unique container name; a random
	// suffix is always appended.
	NamePrefix string

	Logger *zap.Logger
}

// Result captures everything the caller needs to interpret a run.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

// Run creates, starts, and waits for a container to complete, streaming
// its combined output into cfg.Logger as it arrives and returning the
// full captured stdout/stderr once it exits. The returned error is nil
// only when the exit code is 0 or declared expected; Result is populated
// regardless, so a component can still inspect ExitCode/Stdout when an
// "expected" non-zero exit signals findings rather than failure.
func Run(ctx context.Context, cli *client.Client, cfg Config) (*Result, *errs.Error) {
	if cfg.TimeoutSeconds <= 0 {
		return nil, errs.New(errs.Validation, "timeoutSeconds must be greater than zero")
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	if err := ensureImage(ctx, cli, cfg.Image); err != nil {
		return nil, err
	}

	containerCfg := &container.Config{
		Image:       cfg.Image,
		Entrypoint:  cfg.Entrypoint,
		Cmd:         cfg.Argv,
		Env:         buildEnv(cfg.Env),
		Labels:      cfg.Labels,
		OpenStdin:   cfg.Stdin != nil,
		StdinOnce:   cfg.Stdin != nil,
		AttachStdin: cfg.Stdin != nil,
	}
	hostCfg := &container.HostConfig{
		Mounts: cfg.Mounts,
	}
	if cfg.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(cfg.Network)
	}

	resp, err := cli.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, platformOf(cfg.Platform), containerName(cfg.NamePrefix))
	if err != nil {
		return nil, errs.Wrap(errs.Container, err, "failed to create container")
	}
	defer cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true, RemoveVolumes: false})

	if cfg.Stdin != nil {
		attach, err := cli.ContainerAttach(ctx, resp.ID, container.AttachOptions{Stream: true, Stdin: true})
		if err != nil {
			return nil, errs.Wrap(errs.Container, err, "failed to attach container stdin")
		}
		if _, err := attach.Conn.Write(cfg.Stdin); err != nil {
			attach.Close()
			return nil, errs.Wrap(errs.Container, err, "failed to write container stdin")
		}
		if cw, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
		attach.Close()
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, errs.Wrap(errs.Container, err, "failed to start container")
	}

	result, runErr := waitAndStream(runCtx, cli, resp.ID, cfg.Logger)
	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			_ = cli.ContainerKill(context.Background(), resp.ID, "SIGKILL")
			result.TimedOut = true
			return result, errs.New(errs.Container, "container exceeded its timeout").WithRetryable(true)
		}
		return result, errs.Wrap(errs.Container, runErr, "container execution failed")
	}

	if classifyErr := ClassifyExit(result.ExitCode, cfg.ExpectedExitCodes); classifyErr != nil {
		classifyErr = classifyErr.WithDetails(map[string]interface{}{
			"exitCode": result.ExitCode,
			"stderr":   truncate(result.Stderr, 4096),
		})
		return result, classifyErr
	}
	return result, nil
}

// ClassifyExit applies the exit-code policy: zero or any
// component-declared expected code is success, anything else is a
// Container error.
func ClassifyExit(exitCode int, expected []int) *errs.Error {
	if exitCode == 0 {
		return nil
	}
	for _, code := range expected {
		if exitCode == code {
			return nil
		}
	}
	return errs.New(errs.Container, fmt.Sprintf("container exited with unexpected code %d", exitCode))
}

func waitAndStream(ctx context.Context, cli *client.Client, containerID string, logger *zap.Logger) (*Result, error) {
	var stdout, stderr bytes.Buffer
	result := &Result{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reader, err := cli.ContainerLogs(gctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: true})
		if err != nil {
			return err
		}
		defer reader.Close()

		stdoutWriter := io.Writer(&stdout)
		stderrWriter := io.Writer(&stderr)
		if logger != nil {
			stdoutWriter = io.MultiWriter(&stdout, &lineLogger{logger: logger, stream: "stdout"})
			stderrWriter = io.MultiWriter(&stderr, &lineLogger{logger: logger, stream: "stderr"})
		}

		_, err = stdcopy.StdCopy(stdoutWriter, stderrWriter, reader)
		if err != nil && err != io.EOF {
			return err
		}
		return nil
	})

	statusCh, errCh := cli.ContainerWait(gctx, containerID, container.WaitConditionNotRunning)
	g.Go(func() error {
		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case status := <-statusCh:
			result.ExitCode = int(status.StatusCode)
		case <-gctx.Done():
			return gctx.Err()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		result.Stdout = stdout.Bytes()
		result.Stderr = stderr.Bytes()
		return result, err
	}
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()
	return result, nil
}

type lineLogger struct {
	logger *zap.Logger
	stream string
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.logger.Debug("container output", zap.String("stream", w.stream), zap.ByteString("chunk", p))
	return len(p), nil
}

func ensureImage(ctx context.Context, cli *client.Client, imageName string) *errs.Error {
	if _, err := cli.ImageInspect(ctx, imageName); err == nil {
		return nil
	}
	reader, err := cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return errs.Wrap(errs.Container, err, "failed to pull component image")
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return errs.Wrap(errs.Container, err, "failed to pull component image")
	}
	return nil
}

func buildEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
