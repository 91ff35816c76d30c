package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	resets int
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) get(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) ResetDailyQuota(_ context.Context, id string, previous, resetAt time.Time) (bool, error) {
	applied := false
	err := m.update(id, func(u *domain.User) {
		if !u.LastSearchResetDate.Equal(previous) {
			return
		}
		applied = true
		m.resets++
		u.DailySearchCount = 0
		u.LastSearchResetDate = resetAt
		u.SearchLimitWarningToday = false
	})
	return applied, err
}

func (m *memUsers) IncrementSearchCount(_ context.Context, id string) error {
	return m.update(id, func(u *domain.User) { u.DailySearchCount++ })
}

func (m *memUsers) ClaimSearchLimitWarning(_ context.Context, id string) (bool, error) {
	claimed := false
	err := m.update(id, func(u *domain.User) {
		if !u.SearchLimitWarningToday {
			u.SearchLimitWarningToday = true
			claimed = true
		}
	})
	return claimed, err
}

func (m *memUsers) ListTrialsEndingBetween(_ context.Context, from, to time.Time) ([]domain.User, error) {
	return m.filter(func(u *domain.User) bool {
		return u.IsTrial() && !u.TrialExpiryWarningSent && u.TrialEndsAt != nil &&
			u.TrialEndsAt.After(from) && !u.TrialEndsAt.After(to)
	}), nil
}

func (m *memUsers) MarkTrialExpiryWarningSent(_ context.Context, id string) error {
	return m.update(id, func(u *domain.User) { u.TrialExpiryWarningSent = true })
}

func (m *memUsers) ListEndedTrials(_ context.Context, now time.Time) ([]domain.User, error) {
	return m.filter(func(u *domain.User) bool {
		return u.IsTrial() && u.TrialEndsAt != nil && !u.TrialEndsAt.After(now)
	}), nil
}

func (m *memUsers) UpdateSubscriptionStatus(_ context.Context, id string, status domain.SubscriptionStatus) error {
	return m.update(id, func(u *domain.User) { u.SubscriptionStatus = status })
}

func (m *memUsers) update(id string, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(u)
	return nil
}

func (m *memUsers) filter(keep func(*domain.User) bool) []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.byID {
		if keep(u) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// checkUUID mirrors Postgres rejecting malformed uuid input with SQLSTATE 22P02.
func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid input syntax for type uuid: %q", id)
	}
	return nil
}

type memSearches struct {
	mu        sync.Mutex
	byID      map[string]*domain.Search
	order     []string
	history   map[string][]domain.SearchStatus
	createErr error
}

func newMemSearches() *memSearches {
	return &memSearches{byID: map[string]*domain.Search{}, history: map[string][]domain.SearchStatus{}}
}

func (m *memSearches) Create(_ context.Context, s *domain.Search) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()
	cp := *s
	m.byID[s.ID] = &cp
	m.order = append(m.order, s.ID)
	m.history[s.ID] = []domain.SearchStatus{s.Status}
	return nil
}

func (m *memSearches) GetByID(_ context.Context, id string) (*domain.Search, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memSearches) ListByUser(_ context.Context, userID string, _ int) ([]domain.Search, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Search
	for i := len(m.order) - 1; i >= 0; i-- {
		if s := m.byID[m.order[i]]; s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSearches) UpdateStatus(_ context.Context, id string, status domain.SearchStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !domain.CanTransition(s.Status, status) {
		return repository.ErrStaleTransition
	}
	s.Status = status
	if completedAt != nil {
		s.CompletedAt = completedAt
	}
	m.history[id] = append(m.history[id], status)
	return nil
}

func (m *memSearches) statuses(id string) []domain.SearchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SearchStatus(nil), m.history[id]...)
}

type memCodes struct {
	mu        sync.Mutex
	codes     []*domain.DiscountCode
	failOn    string
	verifyHit map[string]int
}

func newMemCodes() *memCodes { return &memCodes{verifyHit: map[string]int{}} }

func (m *memCodes) Create(_ context.Context, c *domain.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && c.Code == m.failOn {
		return context.DeadlineExceeded
	}
	c.ID = uuid.NewString()
	cp := *c
	m.codes = append(m.codes, &cp)
	return nil
}

func (m *memCodes) ListBySearch(_ context.Context, searchID string) ([]domain.DiscountCode, error) {
	return m.list(searchID, false), nil
}

func (m *memCodes) ListVerifiedBySearch(_ context.Context, searchID string) ([]domain.DiscountCode, error) {
	return m.list(searchID, true), nil
}

func (m *memCodes) MarkVerified(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyHit[id]++
	for _, c := range m.codes {
		if c.ID == id && !c.Verified {
			c.Verified = true
			c.VerifiedAt = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memCodes) list(searchID string, verifiedOnly bool) []domain.DiscountCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DiscountCode
	for _, c := range m.codes {
		if c.SearchID == searchID && (!verifiedOnly || c.Verified) {
			out = append(out, *c)
		}
	}
	return out
}

type memLogs struct {
	mu   sync.Mutex
	logs []domain.VerificationLog
}

func (m *memLogs) Create(_ context.Context, l *domain.VerificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.NewString()
	m.logs = append(m.logs, *l)
	return nil
}

func (m *memLogs) ListByCode(_ context.Context, codeID string) ([]domain.VerificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VerificationLog
	for _, l := range m.logs {
		if l.DiscountCodeID == codeID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memInbox struct {
	mu       sync.Mutex
	messages []*domain.InboxMessage
}

func (m *memInbox) Create(_ context.Context, msg *domain.InboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memInbox) GetByID(_ context.Context, id string) (*domain.InboxMessage, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memInbox) ListByUser(_ context.Context, userID string) ([]domain.InboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InboxEntry
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].UserID == userID {
			out = append(out, domain.InboxEntry{Message: *m.messages[i]})
		}
	}
	return out, nil
}

func (m *memInbox) MarkRead(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

type stubDiscoverer struct {
	candidates []domain.Candidate
	err        error
	panicMsg   string
}

func (s *stubDiscoverer) Discover(context.Context, string) ([]domain.Candidate, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.candidates, s.err
}

type stubVerifier struct {
	mu    sync.Mutex
	valid map[string]bool
	calls []string
}

func (s *stubVerifier) Verify(_ context.Context, code, _, _ string) domain.VerificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, code)
	if s.valid[code] {
		return domain.VerificationResult{Valid: true, Outcome: domain.OutcomeVerified, Details: "applied"}
	}
	return domain.VerificationResult{Outcome: domain.OutcomeRejected, Details: "rejected"}
}

type stubQueue struct {
	jobs []domain.SearchJob
	err  error
}

func (q *stubQueue) Enqueue(_ context.Context, job domain.SearchJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
