package components

import (
	"strings"

	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/schema"
	"github.com/ridgeline-security/execengine/internal/volume"
)

const (
	katanaImage              = "projectdiscovery/katana:latest"
	katanaDefaultTimeoutSecs = 600
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.recon.katana",
		Label:       "katana",
		Description: "Crawls a list of seed URLs to discover reachable endpoints.",
		InputSchema: schema.Ports{
			"urls": schema.List(schema.Text().Required()),
		},
		ParameterSchema: schema.Ports{
			"depth": schema.Number().WithMin(1).WithDefault(3),
		},
		OutputSchema: schema.Ports{
			"endpoints": schema.List(schema.Text()),
			"rawOutput": schema.Text(),
			"urlCount":  schema.Number().Required(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				Skip:        katanaSkip,
				VolumeFiles: katanaVolumeFiles,
				Build:       katanaBuild,
				Parse:       katanaParse,
			},
		},
	})
}

func katanaSkip(params, inputs map[string]interface{}) (map[string]interface{}, bool) {
	if len(toStringSlice(inputs["urls"])) > 0 {
		return nil, false
	}
	return map[string]interface{}{
		"endpoints": []interface{}{},
		"rawOutput": "",
		"urlCount":  float64(0),
	}, true
}

func katanaVolumeFiles(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error) {
	urls := toStringSlice(inputs["urls"])
	return map[string][]byte{"urls.txt": []byte(strings.Join(urls, "\n"))}, nil
}

func katanaBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	depth := 3
	if d, ok := params["depth"].(float64); ok {
		depth = int(d)
	}
	return dockerrun.Config{
		Image: katanaImage,
		Argv: []string{
			"-silent", "-jc",
			"-list", volume.TargetPath("urls.txt"),
			"-depth", itoa(depth),
		},
		TimeoutSeconds: timeoutOrDefault(timeouts.KatanaSeconds, katanaDefaultTimeoutSecs),
	}, nil
}

func katanaParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw := strings.TrimSpace(string(result.Stdout))
	lines := nonEmptyLines(raw)
	endpoints := make([]interface{}, len(lines))
	for i, l := range lines {
		endpoints[i] = l
	}
	return map[string]interface{}{
		"endpoints": endpoints,
		"rawOutput": raw,
		"urlCount":  float64(len(endpoints)),
	}, nil
}
