package domain

import "time"

// InboxMessage delivers one verified code to the user who searched for it.
type InboxMessage struct {
	ID             string
	UserID         string
	SearchID       string
	DiscountCodeID string
	IsRead         bool
	CreatedAt      time.Time
	ReadAt         *time.Time
}

// InboxEntry is an inbox message joined with the search and code it refers to.
type InboxEntry struct {
	Message InboxMessage
	Query   string
	Code    DiscountCode
}
