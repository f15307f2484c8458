package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kobbyadu/consulta/internal/notify"
)

func TestPublishEvent(t *testing.T) {
	var gotKey string
	var gotBody []byte
	publish := func(ctx context.Context, key string, body []byte) error {
		gotKey = key
		gotBody = body
		return nil
	}

	e := &notify.Event{
		Action:       notify.ActionConfirm,
		BookingID:    "bk_1",
		TargetUserID: "u_1",
		EmittedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	if err := publishEvent(context.Background(), publish, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "bk_1" {
		t.Errorf("Expected publish key bk_1, got %q", gotKey)
	}

	// The published body must decode back into the same valid event the
	// ingress consumers expect.
	var decoded notify.Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("failed to decode published body: %v", err)
	}
	if err := decoded.Validate(); err != nil {
		t.Errorf("Expected published event to validate, got %v", err)
	}
	if decoded.Action != notify.ActionConfirm || decoded.BookingID != "bk_1" || decoded.TargetUserID != "u_1" {
		t.Errorf("Unexpected decoded event: %+v", decoded)
	}
}

func TestPublishEventRefusesInvalid(t *testing.T) {
	published := false
	publish := func(ctx context.Context, key string, body []byte) error {
		published = true
		return nil
	}

	e := &notify.Event{BookingID: "bk_1"} // no action
	if err := publishEvent(context.Background(), publish, e); err == nil {
		t.Error("Expected invalid event to be refused")
	}
	if published {
		t.Error("Expected nothing to reach the broker")
	}
}
