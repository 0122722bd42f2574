package components

import (
	"encoding/json"
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
	supabaseScannerImage      = "ridgelinesec/supabase-scanner:latest"
	supabaseScannerConfigFile = "config.json"
	supabaseScannerReportFile = "report/findings.json"
	supabaseScannerTimeout    = 600
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.cloud.supabase.scan",
		Label:       "Supabase Scanner",
		Description: "Audits a Supabase project's RLS policies and public API exposure.",
		InputSchema: schema.Ports{
			"credentials": schema.Contract(contract.SupabaseCredential).Required(),
		},
		OutputSchema: schema.Ports{
			"findings":  schema.List(schema.JSON()),
			"summary":   schema.JSON().Required(),
			"rawOutput": schema.Text(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				VolumeFiles:   supabaseScannerVolumeFiles,
				ReadBackFiles: []string{supabaseScannerReportFile},
				Build:         supabaseScannerBuild,
				Parse:         supabaseScannerParse,
			},
		},
	})
}

// supabaseScannerVolumeFiles writes the project credentials into the
// isolated volume as a config file rather than passing them as argv or
// env, so the service role key never appears in a process listing or
// container inspect output.
func supabaseScannerVolumeFiles(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error) {
	creds, _ := inputs["credentials"].(map[string]interface{})
	encoded, err := json.Marshal(map[string]interface{}{
		"projectUrl":     creds["projectUrl"],
		"serviceRoleKey": creds["serviceRoleKey"],
	})
	if err != nil {
		return nil, err
	}
	return map[string][]byte{supabaseScannerConfigFile: encoded}, nil
}

func supabaseScannerBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	return dockerrun.Config{
		Image: supabaseScannerImage,
		Argv: []string{
			"--config", volume.TargetPath(supabaseScannerConfigFile),
			"--report", volume.TargetPath("report"),
		},
		TimeoutSeconds: supabaseScannerTimeout,
	}, nil
}

func supabaseScannerParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw, ok := volumeFiles[supabaseScannerReportFile]
	if !ok {
		return map[string]interface{}{
			"findings":  []interface{}{},
			"summary":   map[string]interface{}{"totalFindings": float64(0)},
			"rawOutput": strings.TrimSpace(string(result.Stdout)),
		}, nil
	}

	var report struct {
		Findings []map[string]interface{} `json:"findings"`
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, errs.Wrap(errs.Service, err, "failed to parse supabase scanner report")
	}

	findings := make([]interface{}, len(report.Findings))
	for i, f := range report.Findings {
		findings[i] = f
	}

	return map[string]interface{}{
		"findings": findings,
		"summary": map[string]interface{}{
			"totalFindings": float64(len(findings)),
		},
		"rawOutput": strings.TrimSpace(string(result.Stdout)),
	}, nil
}
