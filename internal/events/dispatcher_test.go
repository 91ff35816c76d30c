package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []EventType
	d.Subscribe(EventSearchCompleted, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSearchCompleted, "u1", "s1", nil)))
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSearchFailed, "u1", "s1", nil)))

	assert.Equal(t, []EventType{EventSearchCompleted}, got)
}

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	calls := 0
	d.Subscribe(EventTrialExpired, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventTrialExpired, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTrialExpired, "u1", "", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestNewEventStampsIdentity(t *testing.T) {
	e := NewEvent(EventCodeVerified, "u1", "s1", CodeVerifiedPayload{Code: "SAVE10"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "s1", e.SearchID)
}
