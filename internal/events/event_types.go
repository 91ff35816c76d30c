package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSearchCreated      EventType = "search_created"
	EventSearchCompleted    EventType = "search_completed"
	EventSearchFailed       EventType = "search_failed"
	EventCodeVerified       EventType = "code_verified"
	EventSearchLimitWarning EventType = "search_limit_warning"
	EventTrialExpiring      EventType = "trial_expiring"
	EventTrialExpired       EventType = "trial_expired"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	SearchID  string      `json:"search_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, userID, searchID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		SearchID:  searchID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SearchCreatedPayload payload.
type SearchCreatedPayload struct {
	Query     string `json:"query"`
	Remaining int    `json:"remaining"`
}

// SearchFinishedPayload is shared by completed and failed events.
type SearchFinishedPayload struct {
	Query         string `json:"query"`
	Candidates    int    `json:"candidates"`
	VerifiedCount int    `json:"verified_count"`
	Error         string `json:"error,omitempty"`
}

// CodeVerifiedPayload payload.
type CodeVerifiedPayload struct {
	DiscountCodeID string `json:"discount_code_id"`
	Code           string `json:"code"`
	MerchantName   string `json:"merchant_name"`
}

// SearchLimitWarningPayload payload.
type SearchLimitWarningPayload struct {
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

// TrialPayload is shared by trial expiring and expired events.
type TrialPayload struct {
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	TrialEndsAt time.Time `json:"trial_ends_at"`
}
