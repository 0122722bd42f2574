package components

import (
	"strings"

	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/schema"
)

const (
	sqlmapImage              = "googlesky/sqlmap:latest"
	sqlmapDefaultTimeoutSecs = 900
	sqlmapInjectionBanner    = "sqlmap identified the following injection point"
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.scan.sqlmap",
		Label:       "SQLMap",
		Description: "Tests a single HTTP target for SQL injection.",
		InputSchema: schema.Ports{
			"targetURL": schema.Text().Required(),
			"cookie":    schema.Secret(),
			"postData":  schema.Text(),
		},
		ParameterSchema: schema.Ports{
			"riskLevel": schema.Number().WithMin(1).WithMax(3).WithDefault(1),
			"level":     schema.Number().WithMin(1).WithMax(5).WithDefault(1),
		},
		OutputSchema: schema.Ports{
			"findings":   schema.List(schema.Text()),
			"vulnerable": schema.Boolean().Required(),
			"rawOutput":  schema.Text(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				Build: sqlmapBuild,
				Parse: sqlmapParse,
			},
		},
	})
}

func sqlmapBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	target, _ := inputs["targetURL"].(string)
	argv := []string{"-u", target, "--batch", "--random-agent"}

	if postData, ok := inputs["postData"].(string); ok && postData != "" {
		argv = append(argv, "--data", postData)
	}
	if cookie, ok := inputs["cookie"].(string); ok && cookie != "" {
		argv = append(argv, "--cookie", cookie)
	}
	if risk, ok := params["riskLevel"].(float64); ok {
		argv = append(argv, "--risk", itoa(int(risk)))
	}
	if level, ok := params["level"].(float64); ok {
		argv = append(argv, "--level", itoa(int(level)))
	}

	return dockerrun.Config{
		Image:          sqlmapImage,
		Argv:           argv,
		TimeoutSeconds: sqlmapDefaultTimeoutSecs,
	}, nil
}

func sqlmapParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw := strings.TrimSpace(string(result.Stdout))
	vulnerable := strings.Contains(raw, sqlmapInjectionBanner)

	var findings []interface{}
	if vulnerable {
		for _, record := range dockerrun.ScanKeyValueLines([]byte(raw)) {
			for k, v := range record {
				if k == "Parameter" || k == "Type" || k == "Title" || k == "Payload" {
					findings = append(findings, k+": "+v)
				}
			}
		}
	}
	if findings == nil {
		findings = []interface{}{}
	}

	return map[string]interface{}{
		"findings":   findings,
		"vulnerable": vulnerable,
		"rawOutput":  raw,
	}, nil
}
