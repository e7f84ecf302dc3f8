package timelock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tesora-labs/tesora/types"
)

func TestTimelockLifecycle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tl := NewTimelock()
	tl.SetClock(func() time.Time { return now })

	delay := 48 * time.Hour

	// First call arms the lock
	ready, expiry, err := tl.EnsureElapsed("act-1", delay)
	assert.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, now.Add(delay), expiry)

	// Strictly before expiry: not elapsed
	now = now.Add(delay - time.Second)
	ready, _, err = tl.EnsureElapsed("act-1", delay)
	assert.False(t, ready)
	assert.ErrorIs(t, err, types.ErrTimelockNotElapsed)

	// At expiry: ready
	now = now.Add(time.Second)
	ready, _, err = tl.EnsureElapsed("act-1", delay)
	assert.NoError(t, err)
	assert.True(t, ready)
}

func TestExpiryImmutable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tl := NewTimelock()
	tl.SetClock(func() time.Time { return now })

	_, first, _ := tl.EnsureElapsed("act-2", time.Hour)

	// A later call with a different delay does not move the expiry
	now = now.Add(10 * time.Minute)
	_, second, _ := tl.EnsureElapsed("act-2", 5*time.Hour)
	assert.Equal(t, first, second)
}

func TestForget(t *testing.T) {
	tl := NewTimelock()
	tl.EnsureElapsed("act-3", time.Hour)
	tl.Forget("act-3")
	_, ok := tl.Expiry("act-3")
	assert.False(t, ok)
}
