package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Session(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("same-id-same-session", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		store := NewMemory(0)
		first, err := store.Session(ctx, "sid-1")
		require.NoError(err)
		first.Set("k", "v")

		second, err := store.Session(ctx, "sid-1")
		require.NoError(err)
		got, ok := second.Get("k")
		require.True(ok)
		assert.Equal("v", got)
	})
	t.Run("distinct-ids-distinct-sessions", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		store := NewMemory(0)
		a, err := store.Session(ctx, "sid-a")
		require.NoError(err)
		a.Set("k", "v")

		b, err := store.Session(ctx, "sid-b")
		require.NoError(err)
		_, ok := b.Get("k")
		assert.False(ok)
	})
	t.Run("empty-id", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		store := NewMemory(0)
		_, err := store.Session(ctx, "")
		require.Error(err)
		assert.True(errors.Is(err, ErrInvalidParameter))
	})
	t.Run("idle-session-expires", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		store := NewMemory(time.Minute)
		now := time.Now()
		store.nowFunc = func() time.Time { return now }

		s, err := store.Session(ctx, "sid-1")
		require.NoError(err)
		s.Set("k", "v")

		now = now.Add(2 * time.Minute)
		fresh, err := store.Session(ctx, "sid-1")
		require.NoError(err)
		_, ok := fresh.Get("k")
		assert.False(ok)
	})
	t.Run("destroy", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		store := NewMemory(0)
		s, err := store.Session(ctx, "sid-1")
		require.NoError(err)
		s.Set("k", "v")
		require.NoError(store.Destroy(ctx, "sid-1"))

		fresh, err := store.Session(ctx, "sid-1")
		require.NoError(err)
		_, ok := fresh.Get("k")
		assert.False(ok)
	})
}

func TestMemorySession_Take(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	store := NewMemory(0)
	s, err := store.Session(context.Background(), "sid-1")
	require.NoError(err)

	s.Set("k", "v")
	got, ok := s.Take("k")
	require.True(ok)
	assert.Equal("v", got)

	_, ok = s.Take("k")
	assert.False(ok)
	_, ok = s.Get("k")
	assert.False(ok)
}
