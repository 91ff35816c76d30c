package domain

import "time"

// SearchStatus enumerates lifecycle states for a search.
type SearchStatus string

const (
	SearchStatusPending    SearchStatus = "pending"
	SearchStatusProcessing SearchStatus = "processing"
	SearchStatusCompleted  SearchStatus = "completed"
	SearchStatusFailed     SearchStatus = "failed"
)

// Search is a single free-text discount query submitted by a user.
type Search struct {
	ID          string
	UserID      string
	Query       string
	Status      SearchStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// IsTerminal reports whether no further transitions are possible.
func (s SearchStatus) IsTerminal() bool {
	return s == SearchStatusCompleted || s == SearchStatusFailed
}

var searchTransitions = map[SearchStatus][]SearchStatus{
	SearchStatusPending:    {SearchStatusProcessing, SearchStatusFailed},
	SearchStatusProcessing: {SearchStatusCompleted, SearchStatusFailed},
	SearchStatusCompleted:  {},
	SearchStatusFailed:     {},
}

// PreviousStatuses returns the statuses from which next may be reached.
func PreviousStatuses(next SearchStatus) []SearchStatus {
	var from []SearchStatus
	for current, targets := range searchTransitions {
		for _, candidate := range targets {
			if candidate == next {
				from = append(from, current)
			}
		}
	}
	return from
}

// CanTransition reports whether a search may move from current to next.
func CanTransition(current, next SearchStatus) bool {
	for _, candidate := range searchTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// SearchJob is the unit of work handed from submission to the background runner.
type SearchJob struct {
	SearchID string `json:"search_id"`
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
}
