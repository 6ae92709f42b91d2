package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilController(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireSnapshot(context.Background()))
	c.ReleaseSnapshot()
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestSnapshotSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentSnapshots: 1})
	ctx := context.Background()

	require.NoError(t, c.AcquireSnapshot(ctx))

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireSnapshot(blocked), "second slot must block")

	c.ReleaseSnapshot()
	require.NoError(t, c.AcquireSnapshot(ctx))
	c.ReleaseSnapshot()
}

func TestIOLimit(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// A transfer larger than the burst must still go through, in chunks.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AcquireIO(ctx, 1<<20))

	// Unlimited controller never blocks.
	free := NewController(Config{})
	require.NoError(t, free.AcquireIO(context.Background(), 1<<30))
}
