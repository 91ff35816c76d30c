package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL).Send(context.Background(), Notification{Title: "Trial ends", Content: "soon"})
	require.NoError(t, err)
	assert.Equal(t, "Trial ends", received.Title)
	assert.Equal(t, "soon", received.Content)
	assert.False(t, received.SentAt.IsZero())
}

func TestWebhookNotifierReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL).Send(context.Background(), Notification{Title: "x"})
	assert.ErrorContains(t, err, "502")
}

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestEmailNotifierBuildsMessage(t *testing.T) {
	dialer := &recordingDialer{}
	notifier := &EmailNotifier{dialer: dialer, from: "noreply@example.com", to: "ops@example.com"}

	require.NoError(t, notifier.Send(context.Background(), Notification{Title: "Search Limit Warning", Content: "3 left"}))
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, dialer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Search Limit Warning"}, dialer.sent[0].GetHeader("Subject"))

	dialer.err = errors.New("connection refused")
	assert.ErrorContains(t, notifier.Send(context.Background(), Notification{}), "connection refused")
}

type failingNotifier struct{ err error }

func (f failingNotifier) Send(context.Context, Notification) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Multi{NewLogNotifier(nil), failingNotifier{err: boom}}.Send(context.Background(), Notification{})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, Multi{NewLogNotifier(nil)}.Send(context.Background(), Notification{}))
}
