package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_sentinel_backend/models"
)

func TestDispatcherResolveUnknownRef(t *testing.T) {
	d := NewHandlerDispatcher()

	_, err := d.Resolve("nope")
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestDispatcherInvokePassesParams(t *testing.T) {
	d := NewHandlerDispatcher()

	var got map[string]interface{}
	d.Register("echo", func(_ context.Context, params map[string]interface{}) error {
		got = params
		return nil
	})

	err := d.Invoke(context.Background(), "echo", map[string]interface{}{"symbol": "NQ"})
	require.NoError(t, err)
	assert.Equal(t, "NQ", got["symbol"])
}

func TestDispatcherInvokePropagatesHandlerError(t *testing.T) {
	d := NewHandlerDispatcher()

	boom := errors.New("boom")
	d.Register("failing", func(context.Context, map[string]interface{}) error {
		return boom
	})

	err := d.Invoke(context.Background(), "failing", nil)
	assert.ErrorIs(t, err, boom)
}

func TestDispatcherInvokeRecoversPanic(t *testing.T) {
	d := NewHandlerDispatcher()

	d.Register("panicky", func(context.Context, map[string]interface{}) error {
		panic("handler exploded")
	})

	err := d.Invoke(context.Background(), "panicky", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestDispatcherReRegisterReplaces(t *testing.T) {
	d := NewHandlerDispatcher()

	d.Register("job", func(context.Context, map[string]interface{}) error {
		return errors.New("old")
	})
	d.Register("job", func(context.Context, map[string]interface{}) error {
		return nil
	})

	assert.NoError(t, d.Invoke(context.Background(), "job", nil))
}

func TestDispatcherRefsSorted(t *testing.T) {
	d := NewHandlerDispatcher()
	noop := func(context.Context, map[string]interface{}) error { return nil }

	d.Register("zeta", noop)
	d.Register("alpha", noop)
	d.Register("mid", noop)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, d.Refs())
}
