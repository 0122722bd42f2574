package components

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/execctx"
)

func TestNotifyBuildEncodesConfigOverStdin(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	cfg, err := notifyBuild(ec, map[string]interface{}{"bulk": true}, map[string]interface{}{
		"message":        "scan complete",
		"providerConfig": map[string]interface{}{"slack": map[string]interface{}{"webhook": "https://hooks.slack.com/x"}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, notifyImage, cfg.Image)
	assert.Contains(t, cfg.Argv, "-bulk")
	assert.Contains(t, cfg.Argv, "scan complete")

	decoded, derr := base64.StdEncoding.DecodeString(string(cfg.Stdin))
	require.NoError(t, derr)
	var providerConfig map[string]interface{}
	require.NoError(t, json.Unmarshal(decoded, &providerConfig))
	assert.Contains(t, providerConfig, "slack")
}

func TestNotifyParse(t *testing.T) {
	result := &dockerrun.Result{ExitCode: 0, Stdout: []byte("delivered\n")}
	out, perr := notifyParse(result, nil)
	require.Nil(t, perr)
	assert.Equal(t, true, out["delivered"])

	failed := &dockerrun.Result{ExitCode: 1}
	out, perr = notifyParse(failed, nil)
	require.Nil(t, perr)
	assert.Equal(t, false, out["delivered"])
}
