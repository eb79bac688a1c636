package chat

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

// Ollama completes chat prompts through a local or remote Ollama server's
// /api/chat endpoint. Calls run through a circuit breaker so a stalled
// local model stops taking the full request timeout on every query once
// it has failed a few times in a row.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	breaker *resilience.Breaker
}

// NewOllama creates an Ollama-backed chat model.
func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

var _ ports.ChatModel = (*Ollama)(nil)

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func (o *Ollama) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var reply string
	err := o.breaker.Call(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(ollamaChatRequest{
			Model: o.model,
			Messages: []ollamaChatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
		})
		if err != nil {
			return fmt.Errorf("chat: ollama: marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("chat: ollama: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("chat: ollama: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("chat: ollama: status %d", resp.StatusCode)
		}

		var out ollamaChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("chat: ollama: decode response: %w", err)
		}
		reply = out.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}
