package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/repository"
	apperrors "github.com/spec-kit/codefinder/pkg/util"
)

// InboxService exposes delivered codes to their owner.
type InboxService struct {
	inbox repository.InboxRepository
	now   func() time.Time
}

// NewInboxService creates the service.
func NewInboxService(inbox repository.InboxRepository) *InboxService {
	return &InboxService{inbox: inbox, now: time.Now}
}

// ListMessages returns the user's inbox, newest first.
func (s *InboxService) ListMessages(ctx context.Context, userID string) ([]domain.InboxEntry, error) {
	return s.inbox.ListByUser(ctx, userID)
}

// MarkRead flips a message to read. Repeated calls leave the first read time in place.
func (s *InboxService) MarkRead(ctx context.Context, userID, messageID string) error {
	if _, err := uuid.Parse(messageID); err != nil {
		return apperrors.NewNotFound("inbox message", nil)
	}
	msg, err := s.inbox.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("inbox message", nil)
		}
		return err
	}
	if msg.UserID != userID {
		return apperrors.NewNotFound("inbox message", nil)
	}
	if msg.IsRead {
		return nil
	}
	_, err = s.inbox.MarkRead(ctx, messageID, s.now())
	return err
}
