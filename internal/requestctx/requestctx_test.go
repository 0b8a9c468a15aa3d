package requestctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerStampsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")
	ctx := WithActor(WithRequestID(context.Background(), "req-1"), "m1")
	logger.InfoContext(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["requestId"] != "req-1" || entry["actorId"] != "m1" || entry["component"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestHandlerWithoutContextIDs(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(slog.NewJSONHandler(&buf, nil))).Info("plain")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := entry["requestId"]; ok {
		t.Fatalf("unexpected requestId: %v", entry)
	}
	if GetRequestID(context.Background()) != "" || GetActor(context.Background()) != "" {
		t.Fatal("empty context must yield empty ids")
	}
}
