package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"claim submitted", TypeClaimSubmitted, true},
		{"claim approved", TypeClaimApproved, true},
		{"claim rejected", TypeClaimRejected, true},
		{"auto approved", TypeClaimAutoApproved, true},
		{"approver assigned", TypeApproverAssigned, true},
		{"withdrawn", TypeClaimWithdrawn, true},
		{"unknown", Type("claim.exploded"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	before := time.Now()
	e := New(TypeApproverAssigned, 7, "clm-abc", 42)

	if e.ID == "" {
		t.Error("New() should generate an ID")
	}
	if e.Type != TypeApproverAssigned {
		t.Errorf("Type = %v, want %v", e.Type, TypeApproverAssigned)
	}
	if e.ClaimID != 7 || e.ClaimRef != "clm-abc" || e.RecipientID != 42 {
		t.Errorf("event fields not set: %+v", e)
	}
	if e.Timestamp.Before(before) {
		t.Error("Timestamp should be set to now")
	}

	e2 := New(TypeApproverAssigned, 7, "clm-abc", 42)
	if e.ID == e2.ID {
		t.Error("New() must generate unique IDs")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	e := New(TypeClaimRejected, 1, "clm-x", 5)
	e2 := e.WithPayload("reason", "missing receipt")

	if e.Payload != nil && len(e.Payload) != 0 {
		t.Error("WithPayload() must not mutate the original event")
	}
	if e2.GetPayloadString("reason") != "missing receipt" {
		t.Errorf("GetPayloadString() = %q, want %q", e2.GetPayloadString("reason"), "missing receipt")
	}
	if e2.GetPayloadString("absent") != "" {
		t.Error("GetPayloadString() should return empty string for missing key")
	}
}
