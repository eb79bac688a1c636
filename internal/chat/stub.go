// Package chat provides ports.ChatModel implementations.
package chat

import (
	"context"
	"strings"

	"github.com/livingtwin/ragsvc/internal/ports"
)

// Stub answers deterministically by returning the user prompt back,
// truncated. It backs RAG_ONLY mode and offline tests, where the caller has
// already embedded retrieved context into the prompt.
type Stub struct{}

var _ ports.ChatModel = Stub{}

func (Stub) Complete(_ context.Context, _, userPrompt string) (string, error) {
	const maxLen = 2000
	p := strings.TrimSpace(userPrompt)
	if len(p) > maxLen {
		p = p[:maxLen]
	}
	return p, nil
}
