package events

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := encode(Event{Type: PostCreated, Timestamp: ts, Data: PostCreatedEvent{PostID: "1", AuthorLoginID: "alice"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for name, values := range map[string]map[string]any{
		"string": {"event": string(raw)},
		"bytes":  {"event": raw},
	} {
		t.Run(name, func(t *testing.T) {
			e, err := decode(values)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if e.Type != PostCreated || !e.Timestamp.Equal(ts) {
				t.Fatalf("unexpected event: %+v", e)
			}
			data, ok := e.Data.(map[string]any)
			if !ok || data["authorLoginId"] != "alice" {
				t.Fatalf("unexpected data: %#v", e.Data)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []map[string]any{
		{},
		{"event": 42},
		{"event": "{not json"},
	}
	for _, values := range tests {
		if _, err := decode(values); err == nil {
			t.Errorf("decode(%v) should fail", values)
		}
	}
}

func TestLogHandlerAcceptsEverything(t *testing.T) {
	h := LogHandler(zap.NewNop().Sugar())
	if err := h(context.Background(), TweetEventsStream, Event{Type: PostCreated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
