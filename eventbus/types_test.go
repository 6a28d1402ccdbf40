package eventbus

import (
	"strings"
	"testing"
	"time"
)

func TestNewEventIDFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	id := NewEventID("dk_", ts)
	if !strings.HasPrefix(id, "dk_20260314_") {
		t.Fatalf("unexpected id: %s", id)
	}
	if len(id) != len("dk_20260314_")+16 {
		t.Fatalf("unexpected id length: %s", id)
	}
	if id == NewEventID("dk_", ts) {
		t.Fatal("ids should be unique")
	}
}

func TestMinimalValidate(t *testing.T) {
	evt := DecisionEvent{
		EventID:   NewEventID("dk_", time.Now()),
		Source:    "decision-kernel",
		Type:      TypePlanCompleted,
		Timestamp: time.Now().UTC(),
	}
	if !evt.MinimalValidate() {
		t.Fatal("complete event should validate")
	}
	evt.Source = ""
	if evt.MinimalValidate() {
		t.Fatal("missing source should fail validation")
	}
}
