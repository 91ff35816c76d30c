package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/codefinder/internal/config"
	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/repository"
)

// QuotaStatus is the outcome of a daily limit check.
type QuotaStatus struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
}

// QuotaService tracks the per-user daily search counter.
type QuotaService struct {
	users repository.UserRepository
	cfg   config.QuotaConfig
	now   func() time.Time
}

// NewQuotaService creates the tracker. A nil location means UTC.
func NewQuotaService(users repository.UserRepository, cfg config.QuotaConfig) *QuotaService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &QuotaService{users: users, cfg: cfg, now: time.Now}
}

// LimitFor returns the daily cap for the user's tier.
func (q *QuotaService) LimitFor(user *domain.User) int {
	if user.SubscriptionStatus == domain.SubscriptionActive {
		return q.cfg.PaidDailyLimit
	}
	return q.cfg.TrialDailyLimit
}

// CheckLimit loads the user and evaluates their quota. A missing user is denied with
// a zero limit.
func (q *QuotaService) CheckLimit(ctx context.Context, userID string) (QuotaStatus, error) {
	user, err := q.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuotaStatus{}, nil
		}
		return QuotaStatus{}, err
	}
	return q.Evaluate(ctx, user)
}

// Evaluate applies a due reset, persisting it and updating user in place, then reports
// whether another search fits in today's budget.
func (q *QuotaService) Evaluate(ctx context.Context, user *domain.User) (QuotaStatus, error) {
	if user == nil {
		return QuotaStatus{}, nil
	}

	now := q.now()
	if !q.sameQuotaDay(now, user.LastSearchResetDate) {
		applied, err := q.users.ResetDailyQuota(ctx, user.ID, user.LastSearchResetDate, now)
		if err != nil {
			return QuotaStatus{}, err
		}
		if applied {
			user.DailySearchCount = 0
			user.LastSearchResetDate = now
			user.SearchLimitWarningToday = false
		} else if err := q.refresh(ctx, user); err != nil {
			return QuotaStatus{}, err
		}
	}

	limit := q.LimitFor(user)
	remaining := limit - user.DailySearchCount
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		Allowed:   user.DailySearchCount < limit,
		Remaining: remaining,
		Limit:     limit,
	}, nil
}

// Increment counts one accepted search.
func (q *QuotaService) Increment(ctx context.Context, userID string) error {
	return q.users.IncrementSearchCount(ctx, userID)
}

// refresh picks up the counters written by a concurrent reset.
func (q *QuotaService) refresh(ctx context.Context, user *domain.User) error {
	current, err := q.users.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	user.DailySearchCount = current.DailySearchCount
	user.LastSearchResetDate = current.LastSearchResetDate
	user.SearchLimitWarningToday = current.SearchLimitWarningToday
	return nil
}

func (q *QuotaService) sameQuotaDay(a, b time.Time) bool {
	ay, am, ad := a.In(q.cfg.Location).Date()
	by, bm, bd := b.In(q.cfg.Location).Date()
	return ay == by && am == bm && ad == bd
}
