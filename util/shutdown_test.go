package util

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownDistributor(t *testing.T) {
	shutdown := NewShutdownChannelDistributor(nil)
	first := make(chan bool, 1)
	second := make(chan bool, 1)
	require.True(t, shutdown.AddListener(first))
	require.True(t, shutdown.AddListener(second))

	shutdown.Shutdown()
	assert.True(t, <-first)
	assert.True(t, <-second)

	// Late listeners are refused and repeated shutdowns are ignored
	assert.False(t, shutdown.AddListener(make(chan bool, 1)))
	shutdown.Shutdown()
}

func TestShutdownFromSignalChannel(t *testing.T) {
	signals := make(chan os.Signal, 1)
	shutdown := NewShutdownChannelDistributor(signals)
	ctx, cancel, ok := shutdown.ListenContext(context.Background())
	require.True(t, ok)
	defer cancel()

	signals <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled on shutdown")
	}

	_, _, ok = shutdown.ListenContext(context.Background())
	assert.False(t, ok)
}
