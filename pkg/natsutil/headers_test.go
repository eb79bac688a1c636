package natsutil

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestInjectExtractHeadersRoundTrip(t *testing.T) {
	header := make(nats.Header)
	InjectHeaders(context.Background(), header)

	// No span in context, so injection may add nothing, but extraction
	// must still return a valid, non-nil context either way.
	ctx := ExtractHeaders(header)
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
}

func TestInjectHeadersNilHeaderIsNoop(t *testing.T) {
	// Must not panic when called with a nil header map.
	InjectHeaders(context.Background(), nil)
}

func TestExtractHeadersEmptyHeaderReturnsBackgroundContext(t *testing.T) {
	ctx := ExtractHeaders(make(nats.Header))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if ctx.Err() != nil {
		t.Fatalf("expected no error on fresh context, got %v", ctx.Err())
	}
}
