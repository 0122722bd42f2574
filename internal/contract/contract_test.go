package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAWSCredential(t *testing.T) {
	t.Run("ValidPasses", func(t *testing.T) {
		err := Validate(AWSCredential, map[string]interface{}{
			"accessKeyId":     "AKIAEXAMPLE",
			"secretAccessKey": "supersecret",
			"region":          "us-east-1",
		})
		assert.Nil(t, err)
	})

	t.Run("MissingFieldFails", func(t *testing.T) {
		err := Validate(AWSCredential, map[string]interface{}{
			"accessKeyId": "AKIAEXAMPLE",
		})
		require.NotNil(t, err)
		assert.Equal(t, "validation", string(err.Kind))
		assert.NotEmpty(t, err.FieldErrors)
	})
}

func TestValidateAtlassianCredential(t *testing.T) {
	err := Validate(AtlassianCredential, map[string]interface{}{
		"baseUrl":     "https://example.atlassian.net",
		"accessToken": "token-value",
	})
	assert.Nil(t, err)
}

func TestValidateSupabaseCredential(t *testing.T) {
	err := Validate(SupabaseCredential, map[string]interface{}{
		"projectUrl":     "https://abc.supabase.co",
		"serviceRoleKey": "service-role-key",
	})
	assert.Nil(t, err)
}

func TestValidateUnknownContract(t *testing.T) {
	err := Validate("core.credential.nonexistent", map[string]interface{}{})
	require.NotNil(t, err)
	assert.Equal(t, "configuration", string(err.Kind))
}

func TestKnownAndNames(t *testing.T) {
	assert.True(t, Known(AWSCredential))
	assert.False(t, Known("core.credential.nonexistent"))
	assert.ElementsMatch(t, []string{AWSCredential, AtlassianCredential, SupabaseCredential}, Names())
}
