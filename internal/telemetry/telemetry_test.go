package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "storeops", "test", true)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	// The global no-op meter accepts instruments.
	c, err := Meter("test").Int64Counter("storeops.test")
	require.NoError(t, err)
	c.Add(context.Background(), 1)
}

func TestInitWithEndpoint(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, "127.0.0.1:1", "storeops", "test", true)
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	// Nothing listens on the endpoint, so flushing may fail; shutdown must
	// still return promptly.
	_ = shutdown(cctx)
}
