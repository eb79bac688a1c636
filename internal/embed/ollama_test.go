package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedSendsModelAndPrompt(t *testing.T) {
	var gotBody ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "nomic-embed-text", 3)
	vec, err := o.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text", gotBody.Model)
	assert.Equal(t, "hello world", gotBody.Prompt)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaEmbedBatchCallsOncePerText(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.5}})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "m", 1)
	vecs, err := o.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Len(t, vecs, 3)
}

func TestOllamaEmbedNonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "m", 1)
	_, err := o.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestOllamaDimensionsReturnsConfiguredValue(t *testing.T) {
	o := NewOllama("http://localhost:11434", "m", 768)
	assert.Equal(t, 768, o.Dimensions())
}

func TestOllamaEmbedTripsBreakerAfterRepeatedFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "m", 1)
	for i := 0; i < 5; i++ {
		_, err := o.Embed(context.Background(), "x")
		assert.Error(t, err)
	}
	assert.Equal(t, 5, hits)

	_, err := o.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 5, hits, "breaker should short-circuit the 6th call without hitting the server")
}
