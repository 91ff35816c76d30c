package domain

import "time"

// Candidate is a discount code proposed by discovery, before it is persisted.
type Candidate struct {
	Code           string
	MerchantName   string
	MerchantURL    string
	Description    string
	DiscountAmount string
	ExpiryDate     *time.Time
	Source         string
}

// DiscountCode is a persisted candidate belonging to a search.
type DiscountCode struct {
	ID             string
	SearchID       string
	Code           string
	MerchantName   string
	MerchantURL    *string
	Description    *string
	DiscountAmount *string
	ExpiryDate     *time.Time
	Source         string
	Verified       bool
	VerifiedAt     *time.Time
	CreatedAt      time.Time
}

// NewDiscountCode maps a candidate onto an unverified record for the search.
func NewDiscountCode(searchID string, c Candidate) *DiscountCode {
	return &DiscountCode{
		SearchID:       searchID,
		Code:           c.Code,
		MerchantName:   c.MerchantName,
		MerchantURL:    optional(c.MerchantURL),
		Description:    optional(c.Description),
		DiscountAmount: optional(c.DiscountAmount),
		ExpiryDate:     c.ExpiryDate,
		Source:         c.Source,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
