package chat

import (
	"context"
	"fmt"

	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI completes chat prompts through the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAI creates an OpenAI-backed chat model.
func NewOpenAI(apiKey string, model openai.ChatModel) *OpenAI {
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

var _ ports.ChatModel = (*OpenAI)(nil)

func (o *OpenAI) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat: openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
