package components

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-security/execengine/internal/dockerrun"
	"github.com/ridgeline-security/execengine/internal/execctx"
)

func TestProwlerBuild(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	cfg, err := prowlerBuild(ec,
		map[string]interface{}{"regions": []interface{}{"us-east-1", "us-west-2"}},
		map[string]interface{}{"credentials": map[string]interface{}{
			"accessKeyId":     "AKIA...",
			"secretAccessKey": "secret",
			"region":          "us-east-1",
		}},
		"vol-1",
	)
	require.NoError(t, err)
	assert.Equal(t, prowlerImage, cfg.Image)
	assert.Equal(t, []int{prowlerFindingsExit}, cfg.ExpectedExitCodes)
	assert.Equal(t, "AKIA...", cfg.Env["AWS_ACCESS_KEY_ID"])
	assert.Contains(t, cfg.Argv, "us-east-1,us-west-2")
}

func TestProwlerParseFindingsPresent(t *testing.T) {
	raw := []byte(`{"Findings":[{"Title":"Public S3 bucket","Severity":{"Label":"HIGH"},
		"Resources":[{"Id":"arn:aws:s3:::example"}],
		"Compliance":{"RelatedRequirements":["CIS 2.1"]}}]}`)
	result := &dockerrun.Result{ExitCode: prowlerFindingsExit}
	out, perr := prowlerParse(result, map[string][]byte{prowlerOutputFile: raw})
	require.Nil(t, perr)

	summary, ok := out["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), summary["totalFindings"])
}

func TestProwlerParseNoReportFile(t *testing.T) {
	result := &dockerrun.Result{ExitCode: 0}
	out, perr := prowlerParse(result, nil)
	require.Nil(t, perr)
	assert.Equal(t, []interface{}{}, out["findings"])
}
