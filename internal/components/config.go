package components

import (
	"fmt"
	"os"
	"strconv"
)

const (
	envHTTPXTimeoutSeconds  = "HTTPX_TIMEOUT_SECONDS"
	envKatanaTimeoutSeconds = "KATANA_TIMEOUT_SECONDS"
	envNotifyTimeoutSeconds = "NOTIFY_TIMEOUT_SECONDS"
)

// TimeoutConfig holds the catalog's environment-driven timeout
// overrides, read once at process start rather than ad hoc with
// os.Getenv inside a component's Build function. A zero field means
// "no override" — the component falls back to its own default.
type TimeoutConfig struct {
	HTTPXSeconds  int
	KatanaSeconds int
	NotifySeconds int
}

// Validate rejects a negative override. A component's Build function
// already supplies its own positive default, so this only guards
// against a malformed environment value making it past parsing.
func (c *TimeoutConfig) Validate() error {
	if c.HTTPXSeconds < 0 {
		return fmt.Errorf("%s must not be negative", envHTTPXTimeoutSeconds)
	}
	if c.KatanaSeconds < 0 {
		return fmt.Errorf("%s must not be negative", envKatanaTimeoutSeconds)
	}
	if c.NotifySeconds < 0 {
		return fmt.Errorf("%s must not be negative", envNotifyTimeoutSeconds)
	}
	return nil
}

// LoadTimeoutConfig parses the catalog's timeout overrides from getenv,
// the way runner.ParseDockerConfig turns a map into a typed, validated
// struct rather than scattering os.Getenv calls through business logic.
// An absent variable means "no override" (0); a present-but-unparsable
// one is a load error rather than a silent fallback.
func LoadTimeoutConfig(getenv func(string) string) (*TimeoutConfig, error) {
	httpxSeconds, err := parseTimeoutOverride(envHTTPXTimeoutSeconds, getenv(envHTTPXTimeoutSeconds))
	if err != nil {
		return nil, err
	}
	katanaSeconds, err := parseTimeoutOverride(envKatanaTimeoutSeconds, getenv(envKatanaTimeoutSeconds))
	if err != nil {
		return nil, err
	}
	notifySeconds, err := parseTimeoutOverride(envNotifyTimeoutSeconds, getenv(envNotifyTimeoutSeconds))
	if err != nil {
		return nil, err
	}

	cfg := &TimeoutConfig{
		HTTPXSeconds:  httpxSeconds,
		KatanaSeconds: katanaSeconds,
		NotifySeconds: notifySeconds,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseTimeoutOverride(envVar, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", envVar, raw)
	}
	return n, nil
}

// timeouts is loaded once at process start; component Build functions
// read it instead of calling os.Getenv themselves.
var timeouts = mustLoadTimeoutConfig()

func mustLoadTimeoutConfig() *TimeoutConfig {
	cfg, err := LoadTimeoutConfig(os.Getenv)
	if err != nil {
		panic(err)
	}
	return cfg
}

// timeoutOrDefault returns override if a positive one was configured,
// otherwise def.
func timeoutOrDefault(override, def int) int {
	if override > 0 {
		return override
	}
	return def
}
