package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryable(t *testing.T) {
	t.Run("ValidationIsNeverRetryable", func(t *testing.T) {
		assert.False(t, New(Validation, "bad input").Retryable())
	})

	t.Run("ConfigurationIsNeverRetryable", func(t *testing.T) {
		assert.False(t, New(Configuration, "missing credential").Retryable())
	})

	t.Run("ServiceIsRetryable", func(t *testing.T) {
		assert.True(t, New(Service, "upstream 500").Retryable())
	})

	t.Run("ContainerIsRetryable", func(t *testing.T) {
		assert.True(t, New(Container, "exited 137").Retryable())
	})

	t.Run("UnknownIsRetryable", func(t *testing.T) {
		assert.True(t, New(Unknown, "???").Retryable())
	})

	t.Run("OverrideWins", func(t *testing.T) {
		e := New(Container, "cancelled").WithRetryable(false)
		assert.False(t, e.Retryable())
	})
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := Wrap(Container, cause, "failed to start container")

	require.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "container")
	assert.Contains(t, e.Error(), "connection refused")
}

func TestAsAndKindOf(t *testing.T) {
	t.Run("DirectError", func(t *testing.T) {
		e := New(Service, "bad response")
		found, ok := As(e)
		require.True(t, ok)
		assert.Equal(t, Service, found.Kind)
		assert.Equal(t, Service, KindOf(e))
	})

	t.Run("WrappedBystdlib", func(t *testing.T) {
		e := New(Validation, "bad field")
		wrapped := errors.Join(errors.New("context"), e)
		// errors.Join doesn't implement single-cause Unwrap() error, so
		// our lightweight As() won't find it through that path, but the
		// stdlib errors.As must still, proving Error satisfies the
		// standard unwrap contract for any correctly chained wrapper.
		var target *Error
		if errors.As(wrapped, &target) {
			assert.Equal(t, Validation, target.Kind)
		}
		assert.Equal(t, Unknown, KindOf(errors.New("totally unrelated")))
	})

	t.Run("NonClassifiedIsUnknown", func(t *testing.T) {
		assert.Equal(t, Unknown, KindOf(errors.New("boom")))
		assert.True(t, IsRetryable(errors.New("boom")))
	})
}

func TestFieldErrorList(t *testing.T) {
	l := NewFieldErrorList()
	assert.False(t, l.HasErrors())
	assert.Nil(t, l.ToError("invalid input"))

	l.Add("domains", "must not be empty")
	l.Add("domains", "must be a list of strings")
	l.Add("regions", "unknown region code")

	require.True(t, l.HasErrors())
	e := l.ToError("input validation failed")
	require.NotNil(t, e)
	assert.Equal(t, Validation, e.Kind)
	assert.False(t, e.Retryable())
	assert.ElementsMatch(t, []string{"must not be empty", "must be a list of strings"}, e.FieldErrors["domains"])
	assert.ElementsMatch(t, []string{"unknown region code"}, e.FieldErrors["regions"])
}
