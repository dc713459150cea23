package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, ok, err := kv.GetItem(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.SetItem(ctx, "a", "1"))
	require.NoError(t, kv.SetItem(ctx, "b", "2"))

	v, ok, err := kv.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, kv.MultiRemove(ctx, []string{"a", "b", "never-existed"}))
	_, ok, _ = kv.GetItem(ctx, "a")
	assert.False(t, ok)
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	kv, err := OpenSQLite(path)
	require.NoError(t, err)

	require.NoError(t, kv.SetItem(ctx, "location:last", `{"latitude":33.68}`))
	require.NoError(t, kv.SetItem(ctx, "location:last", `{"latitude":34.00}`))

	v, ok, err := kv.GetItem(ctx, "location:last")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"latitude":34.00}`, v)

	// Value survives reopening the file.
	kv2, err := OpenSQLite(path)
	require.NoError(t, err)
	v, ok, err = kv2.GetItem(ctx, "location:last")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"latitude":34.00}`, v)

	require.NoError(t, kv2.RemoveItem(ctx, "location:last"))
	_, ok, err = kv2.GetItem(ctx, "location:last")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSet(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	set := NewHashSet(kv, "alerts:processed", slog.Default())
	set.Load(ctx)

	assert.False(t, set.Contains("h1"))
	set.Add(ctx, "h1")
	set.Add(ctx, "h2")
	assert.True(t, set.Contains("h1"))
	assert.Equal(t, 2, set.Len())

	t.Run("persists across instances", func(t *testing.T) {
		reloaded := NewHashSet(kv, "alerts:processed", slog.Default())
		reloaded.Load(ctx)
		assert.True(t, reloaded.Contains("h1"))
		assert.True(t, reloaded.Contains("h2"))
	})

	t.Run("remove evicts and persists", func(t *testing.T) {
		set.Remove(ctx, "h1", "unknown")
		assert.False(t, set.Contains("h1"))

		reloaded := NewHashSet(kv, "alerts:processed", slog.Default())
		reloaded.Load(ctx)
		assert.False(t, reloaded.Contains("h1"))
		assert.True(t, reloaded.Contains("h2"))
	})

	t.Run("corrupt payload starts empty", func(t *testing.T) {
		require.NoError(t, kv.SetItem(ctx, "bad", "{not json"))
		broken := NewHashSet(kv, "bad", slog.Default())
		broken.Load(ctx)
		assert.Zero(t, broken.Len())
	})
}
