package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeyStoreFirstSeenOnce(t *testing.T) {
	ks := NewMemoryKeyStore()

	first, err := ks.MarkProcessed(context.Background(), "key-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := ks.MarkProcessed(context.Background(), "key-1")
	require.NoError(t, err)
	assert.False(t, second)
}

func TestMemoryKeyStoreTracksKeysIndependently(t *testing.T) {
	ks := NewMemoryKeyStore()

	a, _ := ks.MarkProcessed(context.Background(), "key-a")
	b, _ := ks.MarkProcessed(context.Background(), "key-b")
	assert.True(t, a)
	assert.True(t, b)
}
