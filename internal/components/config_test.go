package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGetenv(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadTimeoutConfigDefaultsToZero(t *testing.T) {
	cfg, err := LoadTimeoutConfig(fakeGetenv(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.HTTPXSeconds)
	assert.Equal(t, 0, cfg.KatanaSeconds)
	assert.Equal(t, 0, cfg.NotifySeconds)
}

func TestLoadTimeoutConfigParsesOverrides(t *testing.T) {
	cfg, err := LoadTimeoutConfig(fakeGetenv(map[string]string{
		envHTTPXTimeoutSeconds:  "30",
		envKatanaTimeoutSeconds: "900",
		envNotifyTimeoutSeconds: "15",
	}))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.HTTPXSeconds)
	assert.Equal(t, 900, cfg.KatanaSeconds)
	assert.Equal(t, 15, cfg.NotifySeconds)
}

func TestLoadTimeoutConfigRejectsUnparsableValue(t *testing.T) {
	_, err := LoadTimeoutConfig(fakeGetenv(map[string]string{
		envHTTPXTimeoutSeconds: "not-a-number",
	}))
	require.Error(t, err)
}

func TestLoadTimeoutConfigRejectsNegativeValue(t *testing.T) {
	_, err := LoadTimeoutConfig(fakeGetenv(map[string]string{
		envKatanaTimeoutSeconds: "-5",
	}))
	require.Error(t, err)
}

func TestTimeoutConfigValidate(t *testing.T) {
	t.Run("AllZeroIsValid", func(t *testing.T) {
		cfg := &TimeoutConfig{}
		assert.NoError(t, cfg.Validate())
	})
	t.Run("NegativeHTTPXIsInvalid", func(t *testing.T) {
		cfg := &TimeoutConfig{HTTPXSeconds: -1}
		assert.Error(t, cfg.Validate())
	})
	t.Run("NegativeNotifyIsInvalid", func(t *testing.T) {
		cfg := &TimeoutConfig{NotifySeconds: -1}
		assert.Error(t, cfg.Validate())
	})
}

func TestParseTimeoutOverride(t *testing.T) {
	t.Run("EmptyMeansNoOverride", func(t *testing.T) {
		n, err := parseTimeoutOverride(envHTTPXTimeoutSeconds, "")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
	t.Run("ParsesNegativeInsteadOfSwallowingIt", func(t *testing.T) {
		n, err := parseTimeoutOverride(envHTTPXTimeoutSeconds, "-10")
		require.NoError(t, err)
		assert.Equal(t, -10, n)
	})
	t.Run("RejectsGarbage", func(t *testing.T) {
		_, err := parseTimeoutOverride(envHTTPXTimeoutSeconds, "abc")
		require.Error(t, err)
	})
}

func TestTimeoutOrDefault(t *testing.T) {
	assert.Equal(t, 42, timeoutOrDefault(42, 99))
	assert.Equal(t, 99, timeoutOrDefault(0, 99))
	assert.Equal(t, 99, timeoutOrDefault(-5, 99))
}
