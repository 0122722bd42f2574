package dockerrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-security/execengine/internal/errs"
)

func TestRunRejectsNonPositiveTimeout(t *testing.T) {
	t.Run("Zero", func(t *testing.T) {
		_, err := Run(context.Background(), nil, Config{Image: "alpine:latest", Argv: []string{"true"}, TimeoutSeconds: 0})
		require.NotNil(t, err)
		assert.Equal(t, errs.Validation, err.Kind)
	})

	t.Run("Negative", func(t *testing.T) {
		_, err := Run(context.Background(), nil, Config{Image: "alpine:latest", Argv: []string{"true"}, TimeoutSeconds: -5})
		require.NotNil(t, err)
		assert.Equal(t, errs.Validation, err.Kind)
	})
}

func TestClassifyExit(t *testing.T) {
	t.Run("ZeroIsSuccess", func(t *testing.T) {
		assert.Nil(t, ClassifyExit(0, nil))
	})

	t.Run("UnexpectedNonZeroIsContainerError", func(t *testing.T) {
		err := ClassifyExit(1, nil)
		require.NotNil(t, err)
		assert.Equal(t, errs.Container, err.Kind)
	})

	t.Run("ExpectedCodeIsSuccess", func(t *testing.T) {
		assert.Nil(t, ClassifyExit(3, []int{3}))
		assert.Nil(t, ClassifyExit(183, []int{183}))
	})

	t.Run("CodeNotInExpectedListStillErrors", func(t *testing.T) {
		err := ClassifyExit(2, []int{3})
		require.NotNil(t, err)
		assert.Equal(t, errs.Container, err.Kind)
	})
}
