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
	httpxImage              = "projectdiscovery/httpx:latest"
	httpxDefaultTimeoutSecs = 180
)

func httpxDefaultOptions() map[string]interface{} {
	return map[string]interface{}{
		"followRedirects": true,
		"statusCode":      true,
		"techDetect":      true,
	}
}

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.recon.httpx",
		Label:       "httpx",
		Description: "Probes a list of targets for live HTTP(S) services.",
		InputSchema: schema.Ports{
			// Not Required(): an explicitly empty target list is a valid
			// input that short-circuits to an empty result (Skip below),
			// not a validation failure.
			"targets": schema.List(schema.Text().Required()),
		},
		OutputSchema: schema.Ports{
			"results":     schema.List(schema.JSON()),
			"rawOutput":   schema.Text(),
			"targetCount": schema.Number().Required(),
			"resultCount": schema.Number().Required(),
			"options":     schema.JSON().Required(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				Skip:          httpxSkip,
				VolumeFiles:   httpxVolumeFiles,
				ReadBackFiles: []string{"targets.txt"},
				Build:         httpxBuild,
				Parse:         httpxParse,
			},
		},
	})
}

func httpxSkip(params, inputs map[string]interface{}) (map[string]interface{}, bool) {
	targets := toStringSlice(inputs["targets"])
	if len(targets) > 0 {
		return nil, false
	}
	return map[string]interface{}{
		"results":     []interface{}{},
		"rawOutput":   "",
		"targetCount": float64(0),
		"resultCount": float64(0),
		"options":     httpxDefaultOptions(),
	}, true
}

func httpxVolumeFiles(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error) {
	targets := toStringSlice(inputs["targets"])
	return map[string][]byte{"targets.txt": []byte(strings.Join(targets, "\n"))}, nil
}

func httpxBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	return dockerrun.Config{
		Image:          httpxImage,
		Argv:           []string{"-silent", "-json", "-l", volume.TargetPath("targets.txt")},
		TimeoutSeconds: timeoutOrDefault(timeouts.HTTPXSeconds, httpxDefaultTimeoutSecs),
	}, nil
}

func httpxParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw := strings.TrimSpace(string(result.Stdout))
	records, err := dockerrun.ScanNDJSON(result.Stdout)
	if err != nil {
		return nil, errs.Wrap(errs.Service, err, "failed to parse httpx output")
	}
	results := make([]interface{}, len(records))
	for i, r := range records {
		results[i] = r
	}
	targetCount := len(nonEmptyLines(string(volumeFiles["targets.txt"])))
	return map[string]interface{}{
		"results":     results,
		"rawOutput":   raw,
		"targetCount": float64(targetCount),
		"resultCount": float64(len(results)),
		"options":     httpxDefaultOptions(),
	}, nil
}
