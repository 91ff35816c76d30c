package domain

import "time"

// SubscriptionStatus represents the billing tier of a user.
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// User is the domain model for subscribers who run code searches.
type User struct {
	ID                      string
	Name                    string
	Email                   string
	PasswordHash            string
	SubscriptionStatus      SubscriptionStatus
	TrialEndsAt             *time.Time
	DailySearchCount        int
	LastSearchResetDate     time.Time
	SearchLimitWarningToday bool
	TrialExpiryWarningSent  bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsTrial reports whether the user is on the trial tier.
func (u *User) IsTrial() bool {
	return u.SubscriptionStatus == SubscriptionTrial
}

// HasSearchAccess reports whether the user may submit searches at the given instant:
// a paid subscription, or a trial that has not ended yet.
func (u *User) HasSearchAccess(now time.Time) bool {
	switch u.SubscriptionStatus {
	case SubscriptionActive:
		return true
	case SubscriptionTrial:
		return u.TrialEndsAt != nil && u.TrialEndsAt.After(now)
	default:
		return false
	}
}
