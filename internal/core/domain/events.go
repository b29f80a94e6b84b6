package domain

import "time"

// LedgerEventType names an outbound notification.
type LedgerEventType string

const (
	EventApprovalRequested LedgerEventType = "ApprovalRequested"
	EventApprovalResolved  LedgerEventType = "ApprovalResolved"
	EventEntryPosted       LedgerEventType = "EntryPosted"
	EventEntryReversed     LedgerEventType = "EntryReversed"
)

// LedgerEvent is a fire-and-forget signal emitted after a transition commits.
type LedgerEvent struct {
	EventID     string          `json:"eventID"`
	Type        LedgerEventType `json:"type"`
	WorkplaceID string          `json:"workplaceID"`
	EntryID     string          `json:"entryID"`
	ActorID     string          `json:"actorID"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Properties  map[string]any  `json:"properties,omitempty"`
}

// NewLedgerEvent builds an event about entry performed by actorID.
func NewLedgerEvent(eventID string, eventType LedgerEventType, entry *JournalEntry, actorID string, now time.Time) LedgerEvent {
	return LedgerEvent{
		EventID:     eventID,
		Type:        eventType,
		WorkplaceID: entry.WorkplaceID,
		EntryID:     entry.EntryID,
		ActorID:     actorID,
		OccurredAt:  now,
		Properties: map[string]any{
			"reference": entry.Reference,
			"status":    string(entry.Status),
			"amount":    entry.AbsoluteTotal().StringFixed(2),
		},
	}
}

// With adds a property and returns the event for chaining.
func (e LedgerEvent) With(key string, value any) LedgerEvent {
	if e.Properties == nil {
		e.Properties = map[string]any{}
	}
	e.Properties[key] = value
	return e
}
