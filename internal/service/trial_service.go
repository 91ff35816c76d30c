package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/events"
	"github.com/spec-kit/codefinder/internal/repository"
)

// TrialWarningSender delivers the day-before expiry warning synchronously.
type TrialWarningSender interface {
	SendTrialExpiryWarning(ctx context.Context, p events.TrialPayload) error
}

// TrialService warns trials that end within a day and expires the ones that ended.
type TrialService struct {
	users      repository.UserRepository
	sender     TrialWarningSender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewTrialService creates the service.
func NewTrialService(users repository.UserRepository, sender TrialWarningSender, dispatcher events.Dispatcher, logger *zap.Logger) *TrialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialService{users: users, sender: sender, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// CheckTrials runs both passes. Per-user failures are logged and skipped; only
// listing failures are returned.
func (s *TrialService) CheckTrials(ctx context.Context) error {
	now := s.now().UTC()
	warnErr := s.warnExpiring(ctx, now)
	expireErr := s.expireEnded(ctx, now)
	return errors.Join(warnErr, expireErr)
}

// warnExpiring targets trials ending in (now+24h, now+25h], so an hourly run sees each once.
func (s *TrialService) warnExpiring(ctx context.Context, now time.Time) error {
	users, err := s.users.ListTrialsEndingBetween(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour))
	if err != nil {
		return fmt.Errorf("list expiring trials: %w", err)
	}

	for _, user := range users {
		if user.TrialExpiryWarningSent || user.TrialEndsAt == nil {
			continue
		}
		payload := trialPayload(user)
		if err := s.sender.SendTrialExpiryWarning(ctx, payload); err != nil {
			s.logger.Warn("trial expiry warning not delivered", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		if err := s.users.MarkTrialExpiryWarningSent(ctx, user.ID); err != nil {
			s.logger.Error("mark trial warning sent", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		s.publish(ctx, events.NewEvent(events.EventTrialExpiring, user.ID, "", payload))
	}
	return nil
}

func (s *TrialService) expireEnded(ctx context.Context, now time.Time) error {
	users, err := s.users.ListEndedTrials(ctx, now)
	if err != nil {
		return fmt.Errorf("list ended trials: %w", err)
	}

	for _, user := range users {
		if err := s.users.UpdateSubscriptionStatus(ctx, user.ID, domain.SubscriptionExpired); err != nil {
			s.logger.Error("expire trial", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		s.logger.Info("trial expired", zap.String("user_id", user.ID))
		s.publish(ctx, events.NewEvent(events.EventTrialExpired, user.ID, "", trialPayload(user)))
	}
	return nil
}

func (s *TrialService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func trialPayload(user domain.User) events.TrialPayload {
	p := events.TrialPayload{UserName: user.Name, UserEmail: user.Email}
	if user.TrialEndsAt != nil {
		p.TrialEndsAt = *user.TrialEndsAt
	}
	return p
}
