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
	trufflehogImage           = "trufflesecurity/trufflehog:latest"
	trufflehogVerifiedExit    = 183
	trufflehogDefaultTimeouts = 600
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.secrets.trufflehog",
		Label:       "TruffleHog",
		Description: "Scans a filesystem tree or git repository for hardcoded secrets.",
		InputSchema: schema.Ports{
			"repoURL":           schema.Text(),
			"filesystemContent": schema.JSON(),
		},
		ParameterSchema: schema.Ports{
			"scanType":     schema.Text().WithEnum("filesystem", "git").WithDefault("filesystem"),
			"onlyVerified": schema.Boolean().WithDefault(true),
		},
		OutputSchema: schema.Ports{
			"secrets":            schema.List(schema.JSON()),
			"secretCount":        schema.Number().Required(),
			"verifiedCount":      schema.Number().Required(),
			"hasVerifiedSecrets": schema.Boolean().Required(),
			"rawOutput":          schema.Text(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				VolumeFiles: trufflehogVolumeFiles,
				Build:       trufflehogBuild,
				Parse:       trufflehogParse,
			},
		},
	})
}

func trufflehogVolumeFiles(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error) {
	files := map[string][]byte{}
	content, _ := inputs["filesystemContent"].(map[string]interface{})
	for name, v := range content {
		s, ok := v.(string)
		if !ok {
			continue
		}
		files[name] = []byte(s)
	}
	return files, nil
}

func trufflehogBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	scanType, _ := params["scanType"].(string)
	onlyVerified, _ := params["onlyVerified"].(bool)

	var argv []string
	switch scanType {
	case "git":
		repoURL, _ := inputs["repoURL"].(string)
		argv = []string{"git", repoURL, "--json"}
	default:
		argv = []string{"filesystem", volume.TargetPath(""), "--json"}
	}
	if onlyVerified {
		argv = append(argv, "--results=verified")
	}

	return dockerrun.Config{
		Image:             trufflehogImage,
		Argv:              argv,
		TimeoutSeconds:    trufflehogDefaultTimeouts,
		ExpectedExitCodes: []int{trufflehogVerifiedExit},
	}, nil
}

func trufflehogParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	records, err := dockerrun.ScanNDJSON(result.Stdout)
	if err != nil {
		return nil, errs.Wrap(errs.Service, err, "failed to parse trufflehog output")
	}

	secrets := make([]interface{}, 0, len(records))
	verified := 0
	for _, r := range records {
		if v, ok := r["Verified"].(bool); ok && v {
			verified++
		}
		secrets = append(secrets, r)
	}

	return map[string]interface{}{
		"secrets":            secrets,
		"secretCount":        float64(len(secrets)),
		"verifiedCount":      float64(verified),
		"hasVerifiedSecrets": verified > 0 || result.ExitCode == trufflehogVerifiedExit,
		"rawOutput":          strings.TrimSpace(string(result.Stdout)),
	}, nil
}
