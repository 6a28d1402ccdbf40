package eventbus

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Decision event types published by the kernel.
const (
	TypePlanRejected  = "plan_rejected"
	TypeEmergency     = "emergency"
	TypeRecovery      = "recovery"
	TypeNoRecovery    = "no_recovery"
	TypePlanCompleted = "plan_completed"
	TypePlanAbandoned = "plan_abandoned"
)

// DecisionEvent is the uniform envelope for decision-loop notifications.
type DecisionEvent struct {
	EventID   string                 `json:"event_id"`
	Source    string                 `json:"source"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	GoalKind  string                 `json:"goal_kind,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEventID generates a compact unique event id with a date prefix.
func NewEventID(prefix string, t time.Time) string {
	// 8 random bytes -> 16 hex chars
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + t.UTC().Format("20060102") + "_" + hex.EncodeToString(b)
}

// MinimalValidate checks required fields.
func (e *DecisionEvent) MinimalValidate() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}
