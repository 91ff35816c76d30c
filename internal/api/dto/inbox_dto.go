package dto

import (
	"time"

	"github.com/spec-kit/codefinder/internal/domain"
)

// InboxMessageResponse is one delivered code.
type InboxMessageResponse struct {
	ID        string               `json:"id"`
	SearchID  string               `json:"search_id"`
	Query     string               `json:"query"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Code      DiscountCodeResponse `json:"code"`
}

// NewInboxMessageResponse maps an inbox entry.
func NewInboxMessageResponse(e *domain.InboxEntry) InboxMessageResponse {
	return InboxMessageResponse{
		ID:        e.Message.ID,
		SearchID:  e.Message.SearchID,
		Query:     e.Query,
		IsRead:    e.Message.IsRead,
		CreatedAt: e.Message.CreatedAt,
		ReadAt:    e.Message.ReadAt,
		Code:      NewDiscountCodeResponse(&e.Code),
	}
}
