package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-security/execengine/internal/errs"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	result, err := Run(context.Background(), fastPolicy(), nil, func(attempt int) (map[string]interface{}, *errs.Error) {
		attempts++
		return map[string]interface{}{"ok": true}, nil
	})
	require.Nil(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, result["ok"].(bool))
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	result, err := Run(context.Background(), fastPolicy(), nil, func(attempt int) (map[string]interface{}, *errs.Error) {
		attempts++
		if attempts < 3 {
			return nil, errs.New(errs.Service, "upstream unavailable")
		}
		return map[string]interface{}{"ok": true}, nil
	})
	require.Nil(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, result["ok"].(bool))
}

func TestRunStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := Run(context.Background(), fastPolicy(), nil, func(attempt int) (map[string]interface{}, *errs.Error) {
		attempts++
		return nil, errs.New(errs.Service, "always fails")
	})
	require.NotNil(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "service", string(err.Kind))
}

func TestRunNeverRetriesValidationErrors(t *testing.T) {
	attempts := 0
	_, err := Run(context.Background(), fastPolicy(), nil, func(attempt int) (map[string]interface{}, *errs.Error) {
		attempts++
		return nil, errs.New(errs.Validation, "bad input")
	})
	require.NotNil(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRunHonorsPolicyNonRetryableOverride(t *testing.T) {
	attempts := 0
	policy := fastPolicy()
	policy.NonRetryableKinds = []errs.Kind{errs.Service}

	_, err := Run(context.Background(), policy, nil, func(attempt int) (map[string]interface{}, *errs.Error) {
		attempts++
		return nil, errs.New(errs.Service, "would normally retry")
	})
	require.NotNil(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRunSurfacesCancellationAsNonRetryableContainer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, fastPolicy(), nil, func(attempt int) (map[string]interface{}, *errs.Error) {
		return nil, errs.New(errs.Service, "upstream unavailable")
	})
	require.NotNil(t, err)
	assert.Equal(t, "container", string(err.Kind))
	assert.False(t, err.Retryable())
}
