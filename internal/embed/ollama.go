package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/livingtwin/ragsvc/pkg/resilience"
)

// Ollama embeds text through a local or remote Ollama server's
// /api/embeddings endpoint. Calls run through a circuit breaker since a
// wedged local Ollama server would otherwise stall every ingest and
// query on a full HTTP timeout per request.
type Ollama struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
	breaker *resilience.Breaker
}

// NewOllama creates an Ollama-backed embedder.
func NewOllama(baseURL, model string, dims int) *Ollama {
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

var _ ports.Embedder = (*Ollama)(nil)

func (o *Ollama) Dimensions() int { return o.dims }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (o *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := o.breaker.Call(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
		if err != nil {
			return fmt.Errorf("embed: ollama: marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("embed: ollama: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("embed: ollama: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("embed: ollama: status %d", resp.StatusCode)
		}

		var out ollamaEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("embed: ollama: decode response: %w", err)
		}
		vec = out.Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	return o.embed(ctx, text)
}

func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := o.embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed: ollama: batch item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
