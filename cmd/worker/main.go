package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	_ "github.com/ridgeline-security/execengine/internal/components"
	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/engine"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/logger"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/volume"
)

func main() {
	app := &cli.App{
		Name:    "execengine-worker",
		Usage:   "Worker-side component execution engine",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every registered component's id, runner kind, and label",
				Action: func(c *cli.Context) error {
					return runList()
				},
			},
			{
				Name:  "invoke",
				Usage: "Invoke a single component with JSON inputs and parameters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "component", Required: true, Usage: "Component id"},
					&cli.StringFlag{Name: "inputs", Value: "{}", Usage: "JSON object of inputs"},
					&cli.StringFlag{Name: "params", Value: "{}", Usage: "JSON object of parameters"},
					&cli.StringFlag{Name: "run-id", Value: "", Usage: "Run id; one is generated from the current time if omitted"},
					&cli.StringFlag{Name: "tenant-id", Value: "default", Usage: "Tenant id"},
					&cli.StringFlag{Name: "metrics-addr", Value: "", EnvVars: []string{"METRICS_ADDR"}, Usage: "Address to serve /metrics on while invoking, e.g. :9090"},
				},
				Action: runInvoke,
			},
			{
				Name:  "sweep-volumes",
				Usage: "Remove orphaned isolated volumes older than the given age",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Value: time.Hour, Usage: "Age threshold"},
				},
				Action: runSweepVolumes,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runList() error {
	ids := registry.List()
	for _, id := range ids {
		def, err := registry.Get(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", def.ID, def.Runner.Kind, def.Label)
	}
	return nil
}

func runInvoke(c *cli.Context) error {
	componentID := c.String("component")

	var inputs, params map[string]interface{}
	if err := json.Unmarshal([]byte(c.String("inputs")), &inputs); err != nil {
		return fmt.Errorf("failed to parse --inputs as JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(c.String("params")), &params); err != nil {
		return fmt.Errorf("failed to parse --params as JSON: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	stdCtx, zapLogger := logger.PrepareLogger(ctx)

	reg := prometheus.NewRegistry()
	if err := dispatch.Register(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if addr := c.String("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zapLogger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	dockerClient, err := newDockerClient(stdCtx)
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	volumes := volume.New(dockerClient)
	dispatcher := dispatch.New(dockerClient, volumes)
	invoker := engine.New(dispatcher)

	runID := c.String("run-id")
	if runID == "" {
		runID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	}

	execCtx := execctx.New(stdCtx, runID, c.String("tenant-id"), nil, nil)

	outputs, invokeErr := invoker.Invoke(execCtx, componentID, inputs, params)
	if invokeErr != nil {
		encoded, _ := json.MarshalIndent(map[string]interface{}{
			"error": map[string]interface{}{
				"kind":    invokeErr.Kind,
				"message": invokeErr.Message,
			},
		}, "", "  ")
		fmt.Fprintln(os.Stderr, string(encoded))
		return cli.Exit("", 1)
	}

	encoded, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func runSweepVolumes(c *cli.Context) error {
	ctx := context.Background()
	dockerClient, err := newDockerClient(ctx)
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	volumes := volume.New(dockerClient)
	removed, err := volumes.Sweep(ctx, c.Duration("older-than"))
	if err != nil {
		return fmt.Errorf("failed to sweep volumes: %w", err)
	}
	for _, name := range removed {
		fmt.Println(name)
	}
	fmt.Fprintf(os.Stderr, "removed %d orphaned volume(s)\n", len(removed))
	return nil
}

// newDockerClient builds a Docker client from the standard DOCKER_* env
// vars (DOCKER_HOST, DOCKER_API_VERSION, DOCKER_TLS_VERIFY,
// DOCKER_CERT_PATH, all read by client.FromEnv) with API version
// negotiation, and verifies connectivity before returning.
func newDockerClient(ctx context.Context) (*client.Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}
	return cli, nil
}
