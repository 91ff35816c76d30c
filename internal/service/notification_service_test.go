package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/codefinder/internal/events"
	"github.com/spec-kit/codefinder/internal/notify"
)

type captureNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
	err error
}

func (c *captureNotifier) Send(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	return c.err
}

func TestNotificationServiceSendsLimitWarning(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &captureNotifier{}
	svc := NewNotificationService(dispatcher, notifier, nil)
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventSearchLimitWarning, "u1", "", events.SearchLimitWarningPayload{
		UserName: "Ada", UserEmail: "ada@example.com", Remaining: 3, Limit: 15,
	}))
	require.NoError(t, err)
	svc.Wait()

	require.Len(t, notifier.got, 1)
	assert.Equal(t, "Search Limit Warning for ada@example.com", notifier.got[0].Title)
	assert.Contains(t, notifier.got[0].Content, "only 3 discount code searches remaining")
}

func TestNotificationFailuresDoNotPropagate(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &captureNotifier{err: errors.New("smtp down")}
	svc := NewNotificationService(dispatcher, notifier, nil)
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventTrialExpired, "u1", "", events.TrialPayload{
		UserEmail: "ada@example.com", TrialEndsAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	assert.NoError(t, err)
	svc.Wait()
	require.Len(t, notifier.got, 1)
	assert.Contains(t, notifier.got[0].Content, "2026-03-01")
}

func TestSendTrialExpiryWarningReturnsDeliveryError(t *testing.T) {
	boom := errors.New("smtp down")
	svc := NewNotificationService(nil, &captureNotifier{err: boom}, nil)
	err := svc.SendTrialExpiryWarning(context.Background(), events.TrialPayload{UserEmail: "a@example.com"})
	assert.ErrorIs(t, err, boom)
}
