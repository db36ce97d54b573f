package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendContract exercises the behaviour every Backend must share.
func runBackendContract(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	t.Run("get missing key", func(t *testing.T) {
		b := newBackend(t)

		v, err := b.Get(context.Background(), "forum:users:missing")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "forum:users:1", []byte(`{"id":"1"}`)))

		v, err := b.Get(ctx, "forum:users:1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"1"}`, string(v))
	})

	t.Run("set overwrites", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "k", []byte("one")))
		require.NoError(t, b.Set(ctx, "k", []byte("two")))

		v, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(v))
	})

	t.Run("delete removes key and is idempotent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "k", []byte("v")))
		require.NoError(t, b.Delete(ctx, "k"))
		require.NoError(t, b.Delete(ctx, "k"))

		_, err := b.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("keys by prefix are sorted and literal", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		for _, k := range []string{"forum:posts:b", "forum:posts:a", "forum:postsX:c", "forum:users:1", "other:posts:z"} {
			require.NoError(t, b.Set(ctx, k, []byte("v")))
		}

		keys, err := b.Keys(ctx, "forum:posts:")
		require.NoError(t, err)
		assert.Equal(t, []string{"forum:posts:a", "forum:posts:b"}, keys)

		keys, err = b.Keys(ctx, "forum:nothing:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("wildcard characters in prefix match literally", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "a_b:1", []byte("v")))
		require.NoError(t, b.Set(ctx, "axb:1", []byte("v")))
		require.NoError(t, b.Set(ctx, "a%b:1", []byte("v")))

		keys, err := b.Keys(ctx, "a_b:")
		require.NoError(t, err)
		assert.Equal(t, []string{"a_b:1"}, keys)
	})
}
