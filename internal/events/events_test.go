package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher()

	event := AttendanceEvent{
		UserID:     42,
		EventType:  "CHECK_IN",
		Confidence: 0.91,
		LogID:      "log-1",
		Timestamp:  time.Now().UTC(),
	}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := p.Events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].UserID != 42 || got[0].EventType != "CHECK_IN" {
		t.Errorf("unexpected event %+v", got[0])
	}
}

func TestMemoryPublisherErrorInjection(t *testing.T) {
	p := NewMemoryPublisher()
	p.PublishErr = errors.New("broker down")

	if err := p.Publish(context.Background(), AttendanceEvent{}); err == nil {
		t.Fatal("expected injected error")
	}
	if len(p.Events()) != 0 {
		t.Error("failed publish must not record an event")
	}
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	if err := p.Publish(context.Background(), AttendanceEvent{UserID: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestAttendanceEventJSON(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := AttendanceEvent{
		UserID:     7,
		EventType:  "CHECK_IN",
		Confidence: 0.88,
		Location:   "lobby",
		LogID:      "log-7",
		Timestamp:  ts,
	}

	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"user_id", "event_type", "confidence", "location", "log_id", "timestamp"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing field %q in payload", key)
		}
	}
}

func TestAttendanceEventOmitsEmptyLocation(t *testing.T) {
	body, err := json.Marshal(AttendanceEvent{UserID: 1, EventType: "CHECK_IN", LogID: "log-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["location"]; ok {
		t.Error("empty location must be omitted")
	}
}
