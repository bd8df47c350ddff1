package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can route them.
type EventCategory string

const (
	// CategoryCompliance covers custody of verified identity data.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers capability lifecycle changes and failed verifications.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine access.
	CategoryOperations EventCategory = "operations"
)

// EventType is the tag recorded with every event.
type EventType string

const (
	EventVerificationCompleted EventType = "verification_completed"
	EventVerificationFailed    EventType = "verification_failed"
	EventShareLinkCreated      EventType = "share_link_created"
	EventShareLinkAccessed     EventType = "share_link_accessed"
	EventShareLinkDeactivated  EventType = "share_link_deactivated"
)

var eventCategories = map[EventType]EventCategory{
	EventVerificationCompleted: CategoryCompliance,
	EventVerificationFailed:    CategorySecurity,
	EventShareLinkCreated:      CategorySecurity,
	EventShareLinkDeactivated:  CategorySecurity,
	EventShareLinkAccessed:     CategoryOperations,
}

// Category returns the EventCategory for this event type.
// Unknown types default to CategoryOperations.
func (t EventType) Category() EventCategory {
	if cat, ok := eventCategories[t]; ok {
		return cat
	}
	return CategoryOperations
}

// SubjectKey is the data field naming the identity an event belongs to.
const SubjectKey = "user_id"

// Event is the serialized form written to the ledger. It is never mutated once appended.
type Event struct {
	ID        string         `json:"id,omitempty"`
	Type      EventType      `json:"event_type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`

	// LedgerReference is filled in on read; it is not part of the stored body.
	LedgerReference string `json:"-"`
}

// Subject returns the identity the event is scoped to, or "" for system events.
func (e Event) Subject() string {
	if s, ok := e.Data[SubjectKey].(string); ok {
		return s
	}
	return ""
}
