package components

import (
	"strings"

	"github.com/ridgeline-security/execengine/internal/contract"
	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/schema"
	"github.com/ridgeline-security/execengine/internal/volume"
)

const (
	prowlerImage          = "toniblyx/prowler:latest"
	prowlerFindingsExit   = 3
	prowlerDefaultTimeout = 1800
	prowlerOutputFile     = "output/findings.asff.json"
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.cloud.prowler.aws",
		Label:       "Prowler (AWS)",
		Description: "Runs an AWS security posture assessment and returns ASFF findings.",
		InputSchema: schema.Ports{
			"credentials": schema.Contract(contract.AWSCredential).Required(),
		},
		ParameterSchema: schema.Ports{
			"regions": schema.List(schema.Text()),
		},
		OutputSchema: schema.Ports{
			"findings":  schema.List(schema.JSON()),
			"summary":   schema.JSON().Required(),
			"rawOutput": schema.Text(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				VolumeFiles:   prowlerVolumeFiles,
				ReadBackFiles: []string{prowlerOutputFile},
				Build:         prowlerBuild,
				Parse:         prowlerParse,
			},
		},
	})
}

func prowlerVolumeFiles(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error) {
	return nil, nil
}

func prowlerBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	creds, _ := inputs["credentials"].(map[string]interface{})
	accessKeyID, _ := creds["accessKeyId"].(string)
	secretAccessKey, _ := creds["secretAccessKey"].(string)
	sessionToken, _ := creds["sessionToken"].(string)
	region, _ := creds["region"].(string)

	regions := toStringSlice(params["regions"])
	if len(regions) == 0 && region != "" {
		regions = []string{region}
	}

	argv := []string{"aws", "-M", "json-asff", "-F", "findings", "-o", volume.TargetPath("output")}
	if len(regions) > 0 {
		argv = append(argv, "-f", strings.Join(regions, ","))
	}

	env := map[string]string{
		"AWS_ACCESS_KEY_ID":     accessKeyID,
		"AWS_SECRET_ACCESS_KEY": secretAccessKey,
		"AWS_DEFAULT_REGION":    region,
	}
	if sessionToken != "" {
		env["AWS_SESSION_TOKEN"] = sessionToken
	}

	return dockerrun.Config{
		Image:             prowlerImage,
		Argv:              argv,
		Env:               env,
		TimeoutSeconds:    prowlerDefaultTimeout,
		ExpectedExitCodes: []int{prowlerFindingsExit},
	}, nil
}

func prowlerParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw, ok := volumeFiles[prowlerOutputFile]
	if !ok {
		return map[string]interface{}{
			"findings":  []interface{}{},
			"summary":   map[string]interface{}{"totalFindings": float64(0)},
			"rawOutput": strings.TrimSpace(string(result.Stdout)),
		}, nil
	}

	parsed, err := dockerrun.ParseASFF(raw)
	if err != nil {
		return nil, errs.Wrap(errs.Service, err, "failed to parse prowler ASFF output")
	}

	findings := make([]interface{}, len(parsed))
	for i, f := range parsed {
		findings[i] = map[string]interface{}{
			"title":         f.Title,
			"severity":      f.Severity,
			"resourceId":    f.ResourceID,
			"complianceIds": f.ComplianceIDs,
			"raw":           f.Raw,
		}
	}

	return map[string]interface{}{
		"findings": findings,
		"summary": map[string]interface{}{
			"totalFindings": float64(len(findings)),
		},
		"rawOutput": strings.TrimSpace(string(result.Stdout)),
	}, nil
}
