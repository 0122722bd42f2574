package components

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/schema"
)

const (
	notifyImage              = "projectdiscovery/notify:latest"
	notifyDefaultTimeoutSecs = 60
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.notify.dispatch",
		Label:       "Notify",
		Description: "Delivers a message to one or more configured notification providers.",
		InputSchema: schema.Ports{
			"message":        schema.Text().Required(),
			"providerConfig": schema.JSON().Required(),
		},
		ParameterSchema: schema.Ports{
			"bulk": schema.Boolean().WithDefault(false),
		},
		OutputSchema: schema.Ports{
			"delivered": schema.Boolean().Required(),
			"rawOutput": schema.Text(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				Build: notifyBuild,
				Parse: notifyParse,
			},
		},
	})
}

// notifyBuild has no volume to mount: the provider config goes in as a
// base64-encoded blob over stdin instead of a mounted file, since Notify
// reads its -config from "-" and the config is small enough that a
// volume would only add lifecycle overhead for no benefit.
func notifyBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	message, _ := inputs["message"].(string)
	cfg, _ := inputs["providerConfig"].(map[string]interface{})

	encoded, err := json.Marshal(cfg)
	if err != nil {
		return dockerrun.Config{}, err
	}

	argv := []string{"-config", "-", "-data", message}
	if bulk, _ := params["bulk"].(bool); bulk {
		argv = append(argv, "-bulk")
	}

	return dockerrun.Config{
		Image:          notifyImage,
		Argv:           argv,
		Stdin:          []byte(base64.StdEncoding.EncodeToString(encoded)),
		TimeoutSeconds: timeoutOrDefault(timeouts.NotifySeconds, notifyDefaultTimeoutSecs),
	}, nil
}

func notifyParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw := strings.TrimSpace(string(result.Stdout))
	return map[string]interface{}{
		"delivered": result.ExitCode == 0,
		"rawOutput": raw,
	}, nil
}
