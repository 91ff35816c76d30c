package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/events"
	"github.com/spec-kit/codefinder/internal/notify"
)

const notifyTimeout = 30 * time.Second

// NotificationService turns domain events into operator notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSearchLimitWarning, n.handleSearchLimitWarning)
	n.dispatcher.Subscribe(events.EventTrialExpired, n.handleTrialExpired)
	n.dispatcher.Subscribe(events.EventSearchFailed, n.handleSearchFailed)
	n.dispatcher.Subscribe(events.EventSearchCompleted, n.handleSearchCompleted)
}

// Wait blocks until queued deliveries finish.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

// SendTrialExpiryWarning delivers synchronously so the caller can record success.
func (n *NotificationService) SendTrialExpiryWarning(ctx context.Context, p events.TrialPayload) error {
	return n.notifier.Send(ctx, trialExpiryWarning(p))
}

func (n *NotificationService) handleSearchLimitWarning(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SearchLimitWarningPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.sendAsync(event, searchLimitWarning(payload))
	return nil
}

func (n *NotificationService) handleTrialExpired(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TrialPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.sendAsync(event, trialExpired(payload))
	return nil
}

func (n *NotificationService) handleSearchFailed(_ context.Context, event events.Event) error {
	n.logger.Warn("SearchFailed", zap.String("search_id", event.SearchID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleSearchCompleted(_ context.Context, event events.Event) error {
	n.logger.Info("SearchCompleted", zap.String("search_id", event.SearchID), zap.Any("payload", event.Payload))
	return nil
}

// sendAsync delivers off the caller's goroutine; failures are only logged.
func (n *NotificationService) sendAsync(event events.Event, msg notify.Notification) {
	if n.notifier == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.notifier.Send(ctx, msg); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("user_id", event.UserID),
				zap.Error(err))
		}
	}()
}

func searchLimitWarning(p events.SearchLimitWarningPayload) notify.Notification {
	return notify.Notification{
		Title: fmt.Sprintf("Search Limit Warning for %s", p.UserEmail),
		Content: fmt.Sprintf(`Hi %s,

You have only %d discount code searches remaining for today.

Your daily search limit will reset tomorrow, or you can upgrade to premium for unlimited searches!

Best regards,
The CodeFinder Team`, displayName(p.UserName), p.Remaining),
	}
}

func trialExpiryWarning(p events.TrialPayload) notify.Notification {
	return notify.Notification{
		Title: fmt.Sprintf("Trial Expiry Warning for %s", p.UserEmail),
		Content: fmt.Sprintf(`Hi %s,

Your free trial of CodeFinder will expire in 24 hours on %s.

Don't lose access to verified discount codes! Subscribe now to continue saving money.

Best regards,
The CodeFinder Team`, displayName(p.UserName), p.TrialEndsAt.UTC().Format("2006-01-02 15:04 MST")),
	}
}

func trialExpired(p events.TrialPayload) notify.Notification {
	return notify.Notification{
		Title: fmt.Sprintf("Trial Expired for %s", p.UserEmail),
		Content: fmt.Sprintf(`Hi %s,

Your free trial of CodeFinder ended on %s. Subscribe to keep finding verified discount codes.

Best regards,
The CodeFinder Team`, displayName(p.UserName), p.TrialEndsAt.UTC().Format("2006-01-02")),
	}
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
