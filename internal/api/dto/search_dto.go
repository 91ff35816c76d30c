package dto

import (
	"time"

	"github.com/spec-kit/codefinder/internal/domain"
)

// CreateSearchRequest payload for POST /searches.
type CreateSearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse describes one search.
type SearchResponse struct {
	ID          string              `json:"id"`
	Query       string              `json:"query"`
	Status      domain.SearchStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// SearchCreatedResponse is returned right after submission.
type SearchCreatedResponse struct {
	Search            SearchResponse `json:"search"`
	RemainingSearches int            `json:"remaining_searches"`
	DailyLimit        int            `json:"daily_limit"`
}

// DiscountCodeResponse is a verified code shown to the user.
type DiscountCodeResponse struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	MerchantName   string     `json:"merchant_name"`
	MerchantURL    *string    `json:"merchant_url,omitempty"`
	Description    *string    `json:"description,omitempty"`
	DiscountAmount *string    `json:"discount_amount,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	Source         string     `json:"source"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

// SearchResultsResponse bundles a search with its verified codes.
type SearchResultsResponse struct {
	Search SearchResponse         `json:"search"`
	Codes  []DiscountCodeResponse `json:"codes"`
}

// SearchLimitResponse reports today's quota.
type SearchLimitResponse struct {
	CanSearch         bool `json:"can_search"`
	RemainingSearches int  `json:"remaining_searches"`
	DailyLimit        int  `json:"daily_limit"`
}

// NewSearchResponse maps a search.
func NewSearchResponse(s *domain.Search) SearchResponse {
	return SearchResponse{
		ID:          s.ID,
		Query:       s.Query,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}

// NewDiscountCodeResponse maps a code.
func NewDiscountCodeResponse(c *domain.DiscountCode) DiscountCodeResponse {
	return DiscountCodeResponse{
		ID:             c.ID,
		Code:           c.Code,
		MerchantName:   c.MerchantName,
		MerchantURL:    c.MerchantURL,
		Description:    c.Description,
		DiscountAmount: c.DiscountAmount,
		ExpiryDate:     c.ExpiryDate,
		Source:         c.Source,
		VerifiedAt:     c.VerifiedAt,
	}
}
