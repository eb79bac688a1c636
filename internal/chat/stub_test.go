package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubCompleteEchoesTrimmedPrompt(t *testing.T) {
	out, err := Stub{}.Complete(context.Background(), "system", "  what is rag?  ")
	require.NoError(t, err)
	assert.Equal(t, "what is rag?", out)
}

func TestStubCompleteTruncatesLongPrompts(t *testing.T) {
	long := strings.Repeat("x", 5000)
	out, err := Stub{}.Complete(context.Background(), "system", long)
	require.NoError(t, err)
	assert.Len(t, out, 2000)
}
