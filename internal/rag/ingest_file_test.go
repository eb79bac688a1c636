package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestFileSetsKindFromExtension(t *testing.T) {
	svc := New(&fakeEmbedder{}, &fakeChat{}, &fakeStore{}, DefaultOptions())

	source, err := svc.IngestFile(context.Background(), "acme", "notes.md", []byte("# hello\nworld"))
	require.NoError(t, err)
	assert.Equal(t, "md", source.Kind)
	assert.Equal(t, "notes.md", source.Title)
}

func TestIngestFileUnknownExtensionFallsBackToRawText(t *testing.T) {
	svc := New(&fakeEmbedder{}, &fakeChat{}, &fakeStore{}, DefaultOptions())

	source, err := svc.IngestFile(context.Background(), "acme", "data.bin", []byte("raw bytes as text"))
	require.NoError(t, err)
	assert.Equal(t, "bin", source.Kind)
}

func TestIngestFileNoExtensionDefaultsToText(t *testing.T) {
	svc := New(&fakeEmbedder{}, &fakeChat{}, &fakeStore{}, DefaultOptions())

	source, err := svc.IngestFile(context.Background(), "acme", "README", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "text", source.Kind)
}
