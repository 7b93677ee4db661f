package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWithSubscriberFillsContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("stream-service", &buf)

	log.WithSubscriber("req-1", "sub-1").Info(Entry{
		Action:  "area_subscribed",
		Message: "subscription stored",
	})

	var e Entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if e.Level != "INFO" {
		t.Errorf("level = %q, want INFO", e.Level)
	}
	if e.Service != "stream-service" {
		t.Errorf("service = %q, want stream-service", e.Service)
	}
	if e.RequestID != "req-1" {
		t.Errorf("request_id = %q, want req-1", e.RequestID)
	}
	if e.SubscriberID != "sub-1" {
		t.Errorf("subscriber_id = %q, want sub-1", e.SubscriberID)
	}
	if e.Timestamp == "" || e.Action != "area_subscribed" {
		t.Errorf("entry incomplete: %+v", e)
	}
}

func TestWithFieldsMergesAdditional(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("stream-service", &buf)

	log.WithFields(map[string]any{"queue": "entities.vehicles"}).Warn(Entry{
		Action:     "entity_batch_rejected",
		Message:    "bad batch",
		Additional: map[string]any{"entities": 3},
	})

	var e Entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if e.Additional["queue"] != "entities.vehicles" {
		t.Errorf("additional.queue = %v", e.Additional["queue"])
	}
	if e.Additional["entities"] != float64(3) {
		t.Errorf("additional.entities = %v", e.Additional["entities"])
	}
}

func TestExplicitEntryFieldsWinOverContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("stream-service", &buf)

	log.WithSubscriber("", "from-context").Info(Entry{
		Action:       "area_updated",
		Message:      "x",
		SubscriberID: "explicit",
	})

	var e Entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if e.SubscriberID != "explicit" {
		t.Errorf("subscriber_id = %q, want explicit", e.SubscriberID)
	}
}
