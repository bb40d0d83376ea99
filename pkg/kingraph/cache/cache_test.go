package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	val, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 10*time.Millisecond))
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expected entry to expire")
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is not an error
	require.NoError(t, m.Delete(ctx, "k"))
}

func TestMemoryIncr(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n, err := m.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = m.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestMemoryIncrExpire(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Incr(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, m.Expire(ctx, "counter", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	// Window elapsed: the counter starts over
	n, err := m.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
