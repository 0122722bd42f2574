package dockerrun

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanNDJSON(t *testing.T) {
	t.Run("ParsesMultipleObjects", func(t *testing.T) {
		raw := []byte("{\"host\":\"a.example.com\"}\n\n{\"host\":\"b.example.com\"}\n")
		records, err := ScanNDJSON(raw)
		require.Nil(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a.example.com", records[0]["host"])
		assert.Equal(t, "b.example.com", records[1]["host"])
	})

	t.Run("EmptyInputYieldsNoRecords", func(t *testing.T) {
		records, err := ScanNDJSON([]byte(""))
		require.Nil(t, err)
		assert.Empty(t, records)
	})

	t.Run("MalformedLineFailsWithPartialResults", func(t *testing.T) {
		raw := []byte("{\"host\":\"a.example.com\"}\nnot-json\n")
		records, err := ScanNDJSON(raw)
		require.NotNil(t, err)
		assert.Equal(t, "validation", string(err.Kind))
		assert.Len(t, records, 1)
	})

	t.Run("OversizedLineFailsGracefully", func(t *testing.T) {
		huge := strings.Repeat("a", maxLineBytes+1)
		raw := []byte("{\"x\":\"" + huge + "\"}\n")
		_, err := ScanNDJSON(raw)
		require.NotNil(t, err)
	})
}

func TestParseASFF(t *testing.T) {
	raw := []byte(`{
		"Findings": [
			{
				"Title": "S3 bucket is publicly accessible",
				"Severity": {"Label": "HIGH"},
				"Resources": [{"Id": "arn:aws:s3:::example-bucket"}],
				"Compliance": {"RelatedRequirements": ["CIS 2.1.5"]}
			}
		]
	}`)
	findings, err := ParseASFF(raw)
	require.Nil(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "S3 bucket is publicly accessible", findings[0].Title)
	assert.Equal(t, "HIGH", findings[0].Severity)
	assert.Equal(t, "arn:aws:s3:::example-bucket", findings[0].ResourceID)
	assert.Contains(t, findings[0].ComplianceIDs, "CIS 2.1.5")
}

func TestParseASFFMalformed(t *testing.T) {
	_, err := ParseASFF([]byte("not json"))
	require.NotNil(t, err)
	assert.Equal(t, "validation", string(err.Kind))
}

func TestScanKeyValueLines(t *testing.T) {
	raw := []byte("status: 200\nhost=example.com\nplain-target.example.com\n")
	records := ScanKeyValueLines(raw)
	require.Len(t, records, 3)
	assert.Equal(t, "200", records[0]["status"])
	assert.Equal(t, "example.com", records[1]["host"])
	assert.Equal(t, "plain-target.example.com", records[2]["line"])
}

func TestClassifyExitToolCodes(t *testing.T) {
	t.Run("ZeroIsAlwaysSuccess", func(t *testing.T) {
		assert.Nil(t, ClassifyExit(0, nil))
	})

	t.Run("ExpectedCodeIsSuccess", func(t *testing.T) {
		assert.Nil(t, ClassifyExit(3, []int{3}))   // Prowler findings-present
		assert.Nil(t, ClassifyExit(183, []int{183})) // TruffleHog verified secret
	})

	t.Run("UnexpectedCodeIsContainerError", func(t *testing.T) {
		err := ClassifyExit(1, []int{3})
		require.NotNil(t, err)
		assert.Equal(t, "container", string(err.Kind))
	})
}

func TestContainerNameUniqueness(t *testing.T) {
	a := containerName("subfinder")
	b := containerName("subfinder")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "subfinder-"))
}

func TestPlatformOf(t *testing.T) {
	assert.Nil(t, platformOf(""))
	p := platformOf("linux/amd64")
	require.NotNil(t, p)
	assert.Equal(t, "linux", p.OS)
	assert.Equal(t, "amd64", p.Architecture)
}
