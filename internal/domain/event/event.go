package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a notification-bearing domain event. The engine emits one on
// every terminal transition and on advancement to a new approver; delivery
// is fire-and-forget and never rolls back the state transition that
// produced it.
type Event struct {
	ID          string                 `json:"id"`
	Type        Type                   `json:"type"`
	ClaimID     int64                  `json:"claim_id"`
	ClaimRef    string                 `json:"claim_ref"`
	RecipientID int64                  `json:"recipient_id"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// New creates a domain event with an auto-generated ID and timestamp.
func New(eventType Type, claimID int64, claimRef string, recipientID int64) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ClaimID:     claimID,
		ClaimRef:    claimRef,
		RecipientID: recipientID,
		Timestamp:   time.Now(),
	}
}

// WithPayload returns a copy of the event with an added payload entry.
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	clone := *e
	clone.Payload = newPayload
	return &clone
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
