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

const subfinderImage = "projectdiscovery/subfinder:latest"

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.recon.subfinder",
		Label:       "Subfinder",
		Description: "Passive subdomain enumeration over a list of root domains.",
		InputSchema: schema.Ports{
			"domains":        schema.List(schema.Text().Required()).Required(),
			"providerConfig": schema.JSON(),
		},
		OutputSchema: schema.Ports{
			// subdomains/rawOutput are left optional: the schema engine's
			// empty-to-undefined coercion means a present-but-empty list
			// or string can't satisfy Required(), and a scan with no
			// results is a legitimate success, not a missing field.
			"subdomains":     schema.List(schema.Text()),
			"domainCount":    schema.Number().Required(),
			"subdomainCount": schema.Number().Required(),
			"rawOutput":      schema.Text(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerDocker,
			Docker: &dispatch.DockerRunnerSpec{
				VolumeFiles:   subfinderVolumeFiles,
				ReadBackFiles: []string{"domains.txt"},
				Build:         subfinderBuild,
				Parse:         subfinderParse,
			},
		},
	})
}

func subfinderVolumeFiles(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string][]byte, error) {
	domains := toStringSlice(inputs["domains"])
	files := map[string][]byte{"domains.txt": []byte(strings.Join(domains, "\n"))}
	if cfg, ok := inputs["providerConfig"].(map[string]interface{}); ok {
		if providerConfigYAML, ok := cfg["inline"].(string); ok && providerConfigYAML != "" {
			files["provider-config.yaml"] = []byte(providerConfigYAML)
		}
	}
	return files, nil
}

func subfinderBuild(ctx *execctx.Context, params, inputs map[string]interface{}, volumeName string) (dockerrun.Config, error) {
	argv := []string{"-silent", "-dL", volume.TargetPath("domains.txt")}
	if cfg, ok := inputs["providerConfig"].(map[string]interface{}); ok && len(cfg) > 0 {
		if providerConfigYAML, ok := cfg["inline"].(string); ok && providerConfigYAML != "" {
			argv = append(argv, "-pc", volume.TargetPath("provider-config.yaml"))
		}
	}
	return dockerrun.Config{
		Image:          subfinderImage,
		Argv:           argv,
		TimeoutSeconds: 300,
	}, nil
}

func subfinderParse(result *dockerrun.Result, volumeFiles map[string][]byte) (map[string]interface{}, *errs.Error) {
	raw := strings.TrimSpace(string(result.Stdout))
	subdomains := nonEmptyLines(raw)
	domainCount := len(nonEmptyLines(string(volumeFiles["domains.txt"])))

	items := make([]interface{}, len(subdomains))
	for i, s := range subdomains {
		items[i] = s
	}
	return map[string]interface{}{
		"subdomains":     items,
		"domainCount":    float64(domainCount),
		"subdomainCount": float64(len(subdomains)),
		"rawOutput":      raw,
	}, nil
}
