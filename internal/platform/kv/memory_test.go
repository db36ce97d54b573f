package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_Contract(t *testing.T) {
	runBackendContract(t, func(t *testing.T) Backend {
		return NewMemoryBackend()
	})
}

func TestMemoryBackend_KindAndName(t *testing.T) {
	t.Parallel()

	b := NewMemoryBackend()

	assert.Equal(t, KindFallback, b.Kind())
	assert.Equal(t, "memory", b.Name())
}

func TestMemoryBackend_ValuesAreCopied(t *testing.T) {
	t.Parallel()

	b := NewMemoryBackend()
	ctx := context.Background()

	buf := []byte("original")
	require.NoError(t, b.Set(ctx, "k", buf))
	buf[0] = 'X'

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got), "stored value must not alias the caller's buffer")

	got[0] = 'Y'
	again, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(again), "returned value must not alias the stored value")
	assert.Equal(t, 1, b.Len())
}
