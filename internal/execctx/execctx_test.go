package execctx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	values map[string]string
}

func (f *fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f.values[ref]
	if !ok {
		return "", errors.New("secret not found: " + ref)
	}
	return v, nil
}

func TestNewCarriesIdentity(t *testing.T) {
	ec := New(context.Background(), "run-1", "tenant-a", nil, nil)
	assert.Equal(t, "run-1", ec.RunID)
	assert.Equal(t, "tenant-a", ec.TenantID)
	assert.NotNil(t, ec.Logger())
}

func TestWithContextRoundTrip(t *testing.T) {
	ec := New(context.Background(), "run-1", "tenant-a", nil, nil)
	ctx := WithContext(context.Background(), ec)
	retrieved := FromContext(ctx)
	require.NotNil(t, retrieved)
	assert.Equal(t, "run-1", retrieved.RunID)
}

func TestFromContextAbsent(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestProgressDropsOnFullChannel(t *testing.T) {
	ch := make(chan ProgressEvent, 1)
	ec := New(context.Background(), "run-1", "tenant-a", ch, nil)

	ec.Progress("first", nil)
	ec.Progress("second", nil) // channel is full; must not block

	event := <-ch
	assert.Equal(t, "first", event.Message)
	assert.Empty(t, ch)
}

func TestProgressNilChannelIsNoop(t *testing.T) {
	ec := New(context.Background(), "run-1", "tenant-a", nil, nil)
	assert.NotPanics(t, func() { ec.Progress("noop", nil) })
}

func TestResolveSecret(t *testing.T) {
	t.Run("NoResolverConfigured", func(t *testing.T) {
		ec := New(context.Background(), "run-1", "tenant-a", nil, nil)
		_, err := ec.ResolveSecret("vault://aws/key")
		require.Error(t, err)
	})

	t.Run("ResolvesThroughConfiguredResolver", func(t *testing.T) {
		resolver := &fakeResolver{values: map[string]string{"vault://aws/key": "secret-value"}}
		ec := New(context.Background(), "run-1", "tenant-a", nil, resolver)
		v, err := ec.ResolveSecret("vault://aws/key")
		require.NoError(t, err)
		assert.Equal(t, "secret-value", v)
	})
}

func TestWithComponentAddsField(t *testing.T) {
	ec := New(context.Background(), "run-1", "tenant-a", nil, nil)
	withComponent := ec.WithComponent("subfinder")
	assert.NotNil(t, withComponent.Logger())
	assert.Equal(t, ec.RunID, withComponent.RunID)
}
