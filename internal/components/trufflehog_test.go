package components

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/execctx"
)

func TestTrufflehogBuildFilesystem(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	cfg, err := trufflehogBuild(ec, map[string]interface{}{"scanType": "filesystem", "onlyVerified": true}, nil, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, trufflehogImage, cfg.Image)
	assert.Contains(t, cfg.Argv, "filesystem")
	assert.Contains(t, cfg.Argv, "--results=verified")
	assert.Equal(t, []int{trufflehogVerifiedExit}, cfg.ExpectedExitCodes)
}

func TestTrufflehogBuildGit(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	cfg, err := trufflehogBuild(ec, map[string]interface{}{"scanType": "git", "onlyVerified": false},
		map[string]interface{}{"repoURL": "https://github.com/example/repo.git"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "https://github.com/example/repo.git", "--json"}, cfg.Argv)
}

func TestTrufflehogVolumeFiles(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	files, err := trufflehogVolumeFiles(ec, nil, map[string]interface{}{
		"filesystemContent": map[string]interface{}{"app.py": "API_KEY = 'abc'", "ignored": 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "API_KEY = 'abc'", string(files["app.py"]))
	_, hasIgnored := files["ignored"]
	assert.False(t, hasIgnored)
}

func TestTrufflehogParseVerifiedSecret(t *testing.T) {
	result := &dockerrun.Result{
		Stdout:   []byte(`{"SourceMetadata":{},"Verified":true,"Raw":"abc"}` + "\n"),
		ExitCode: trufflehogVerifiedExit,
	}
	out, perr := trufflehogParse(result, nil)
	require.Nil(t, perr)
	assert.Equal(t, float64(1), out["secretCount"])
	assert.Equal(t, float64(1), out["verifiedCount"])
	assert.Equal(t, true, out["hasVerifiedSecrets"])
}

func TestTrufflehogParseNoSecrets(t *testing.T) {
	result := &dockerrun.Result{Stdout: []byte("")}
	out, perr := trufflehogParse(result, nil)
	require.Nil(t, perr)
	assert.Equal(t, float64(0), out["secretCount"])
	assert.Equal(t, false, out["hasVerifiedSecrets"])
}
