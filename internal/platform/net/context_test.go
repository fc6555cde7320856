package net_test

import (
	"context"
	"testing"

	pnet "helioserve/internal/platform/net"
)

func TestWithRequest(t *testing.T) {
	base := context.Background()

	ctx := pnet.WithRequest(base, "req-123")
	if got := pnet.RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID got %q want %q", got, "req-123")
	}

	if same := pnet.WithRequest(base, ""); same != base {
		t.Fatalf("empty id should return the same context")
	}
	if got := pnet.RequestID(base); got != "" {
		t.Fatalf("RequestID on bare ctx got %q", got)
	}
}
