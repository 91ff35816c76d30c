package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/events"
	"github.com/spec-kit/codefinder/internal/observability"
	"github.com/spec-kit/codefinder/internal/repository"
	apperrors "github.com/spec-kit/codefinder/pkg/util"
)

const maxQueryLength = 500

// Discoverer proposes candidate codes for a query.
type Discoverer interface {
	Discover(ctx context.Context, query string) ([]domain.Candidate, error)
}

// Verifier tries one candidate on the merchant site. It reports failures as results.
type Verifier interface {
	Verify(ctx context.Context, code, merchantURL, merchantName string) domain.VerificationResult
}

// JobQueue accepts search jobs for background processing.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.SearchJob) error
}

// SearchService accepts searches and runs the discovery, verification and delivery pipeline.
type SearchService struct {
	users      repository.UserRepository
	searches   repository.SearchRepository
	codes      repository.DiscountCodeRepository
	logs       repository.VerificationLogRepository
	inbox      repository.InboxRepository
	quota      *QuotaService
	discoverer Discoverer
	verifier   Verifier
	queue      JobQueue
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	warnAt     int
	now        func() time.Time
}

// SearchDependencies bundles collaborators for the search service.
type SearchDependencies struct {
	UserRepo            repository.UserRepository
	SearchRepo          repository.SearchRepository
	DiscountCodeRepo    repository.DiscountCodeRepository
	VerificationLogRepo repository.VerificationLogRepository
	InboxRepo           repository.InboxRepository
	Quota               *QuotaService
	Discoverer          Discoverer
	Verifier            Verifier
	Queue               JobQueue
	Dispatcher          events.Dispatcher
	Metrics             *observability.Metrics
	Logger              *zap.Logger
	WarningThreshold    int
}

// NewSearchService constructs the service.
func NewSearchService(deps SearchDependencies) *SearchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		users:      deps.UserRepo,
		searches:   deps.SearchRepo,
		codes:      deps.DiscountCodeRepo,
		logs:       deps.VerificationLogRepo,
		inbox:      deps.InboxRepo,
		quota:      deps.Quota,
		discoverer: deps.Discoverer,
		verifier:   deps.Verifier,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		warnAt:     deps.WarningThreshold,
		now:        time.Now,
	}
}

// SubmitResult is returned to the caller before any processing happens.
type SubmitResult struct {
	Search    *domain.Search
	Remaining int
	Limit     int
}

// Submit gates on subscription and quota, records a pending search and hands it to the queue.
func (s *SearchService) Submit(ctx context.Context, userID, query string) (*SubmitResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || len(query) > maxQueryLength {
		return nil, apperrors.NewValidationError("query must be between 1 and 500 characters", map[string]any{"field": "query"})
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if !user.HasSearchAccess(s.now()) {
		return nil, apperrors.NewForbidden("Active subscription or trial required")
	}

	status, err := s.quota.Evaluate(ctx, user)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return nil, apperrors.NewSearchLimitReached(status.Limit, user.IsTrial())
	}

	search := &domain.Search{UserID: user.ID, Query: query, Status: domain.SearchStatusPending}
	if err := s.searches.Create(ctx, search); err != nil {
		return nil, err
	}
	if err := s.quota.Increment(ctx, user.ID); err != nil {
		return nil, err
	}

	remaining := status.Remaining - 1
	if remaining < 0 {
		remaining = 0
	}
	s.maybeWarn(ctx, user, remaining, status.Limit)

	s.publishEvent(ctx, events.NewEvent(events.EventSearchCreated, user.ID, search.ID, events.SearchCreatedPayload{
		Query:     query,
		Remaining: remaining,
	}))

	job := domain.SearchJob{SearchID: search.ID, UserID: user.ID, Query: query}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("enqueue search", zap.String("search_id", search.ID), zap.Error(err))
		s.markFailed(ctx, job, err)
		return nil, apperrors.NewInternalError(fmt.Errorf("enqueue search: %w", err))
	}

	return &SubmitResult{Search: search, Remaining: remaining, Limit: status.Limit}, nil
}

// maybeWarn sends the low-quota warning once per day for trial users.
func (s *SearchService) maybeWarn(ctx context.Context, user *domain.User, remaining, limit int) {
	if !user.IsTrial() || remaining != s.warnAt || user.SearchLimitWarningToday {
		return
	}
	claimed, err := s.users.ClaimSearchLimitWarning(ctx, user.ID)
	if err != nil {
		s.logger.Warn("claim search limit warning", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}
	s.publishEvent(ctx, events.NewEvent(events.EventSearchLimitWarning, user.ID, "", events.SearchLimitWarningPayload{
		UserName:  user.Name,
		UserEmail: user.Email,
		Remaining: remaining,
		Limit:     limit,
	}))
}

type pipelineStats struct {
	candidates int
	verified   int
}

// ProcessSearch drives one search to completed or failed. It never returns an error;
// failures end up as the search's terminal status.
func (s *SearchService) ProcessSearch(ctx context.Context, job domain.SearchJob) {
	log := s.logger.With(zap.String("search_id", job.SearchID), zap.String("user_id", job.UserID))

	stats, err := s.runPipeline(ctx, job, log)
	if err != nil {
		log.Error("search failed", zap.Error(err))
		s.markFailed(ctx, job, err)
		return
	}

	completedAt := s.now()
	if err := s.searches.UpdateStatus(ctx, job.SearchID, domain.SearchStatusCompleted, &completedAt); err != nil {
		log.Error("mark search completed", zap.Error(err))
		s.markFailed(ctx, job, err)
		return
	}
	s.metrics.RecordSearchStatus(string(domain.SearchStatusCompleted))
	log.Info("search completed", zap.Int("candidates", stats.candidates), zap.Int("verified", stats.verified))

	s.publishEvent(ctx, events.NewEvent(events.EventSearchCompleted, job.UserID, job.SearchID, events.SearchFinishedPayload{
		Query:         job.Query,
		Candidates:    stats.candidates,
		VerifiedCount: stats.verified,
	}))
}

func (s *SearchService) runPipeline(ctx context.Context, job domain.SearchJob, log *zap.Logger) (stats pipelineStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search pipeline panic: %v", r)
		}
	}()

	if err := s.searches.UpdateStatus(ctx, job.SearchID, domain.SearchStatusProcessing, nil); err != nil {
		return stats, fmt.Errorf("mark processing: %w", err)
	}

	candidates, err := s.discoverer.Discover(ctx, job.Query)
	if err != nil {
		return stats, err
	}
	stats.candidates = len(candidates)

	for _, candidate := range candidates {
		verified, err := s.processCandidate(ctx, job, candidate, log)
		if err != nil {
			return stats, err
		}
		if verified {
			stats.verified++
		}
	}
	return stats, nil
}

// processCandidate persists, verifies and, when valid, delivers one candidate.
func (s *SearchService) processCandidate(ctx context.Context, job domain.SearchJob, candidate domain.Candidate, log *zap.Logger) (bool, error) {
	code := domain.NewDiscountCode(job.SearchID, candidate)
	if err := s.codes.Create(ctx, code); err != nil {
		return false, fmt.Errorf("save candidate %q: %w", candidate.Code, err)
	}

	result := s.verifier.Verify(ctx, code.Code, candidate.MerchantURL, code.MerchantName)
	s.metrics.RecordVerification(string(result.Outcome))
	log.Info("candidate verified",
		zap.String("code", code.Code),
		zap.String("outcome", string(result.Outcome)),
		zap.Bool("valid", result.Valid))

	entry := &domain.VerificationLog{
		DiscountCodeID:      code.ID,
		Success:             result.Valid,
		VerificationDetails: result.Details,
	}
	if !result.Valid {
		msg := fmt.Sprintf("Code verification failed (%s)", result.Outcome)
		entry.ErrorMessage = &msg
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return false, fmt.Errorf("save verification log: %w", err)
	}
	if !result.Valid {
		return false, nil
	}

	if err := s.codes.MarkVerified(ctx, code.ID, s.now()); err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	msg := &domain.InboxMessage{UserID: job.UserID, SearchID: job.SearchID, DiscountCodeID: code.ID}
	if err := s.inbox.Create(ctx, msg); err != nil {
		return false, fmt.Errorf("deliver to inbox: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventCodeVerified, job.UserID, job.SearchID, events.CodeVerifiedPayload{
		DiscountCodeID: code.ID,
		Code:           code.Code,
		MerchantName:   code.MerchantName,
	}))
	return true, nil
}

func (s *SearchService) markFailed(ctx context.Context, job domain.SearchJob, cause error) {
	completedAt := s.now()
	if err := s.searches.UpdateStatus(ctx, job.SearchID, domain.SearchStatusFailed, &completedAt); err != nil {
		s.logger.Error("mark search failed", zap.String("search_id", job.SearchID), zap.Error(err))
		return
	}
	s.metrics.RecordSearchStatus(string(domain.SearchStatusFailed))
	s.publishEvent(ctx, events.NewEvent(events.EventSearchFailed, job.UserID, job.SearchID, events.SearchFinishedPayload{
		Query: job.Query,
		Error: cause.Error(),
	}))
}

// GetResults returns the search and its verified codes. Searches owned by someone
// else are reported as not found.
func (s *SearchService) GetResults(ctx context.Context, userID, searchID string) (*domain.Search, []domain.DiscountCode, error) {
	if _, err := uuid.Parse(searchID); err != nil {
		return nil, nil, apperrors.NewNotFound("search", nil)
	}
	search, err := s.searches.GetByID(ctx, searchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("search", nil)
		}
		return nil, nil, err
	}
	if search.UserID != userID {
		return nil, nil, apperrors.NewNotFound("search", nil)
	}

	codes, err := s.codes.ListVerifiedBySearch(ctx, searchID)
	if err != nil {
		return nil, nil, err
	}
	return search, codes, nil
}

// ListHistory returns the user's searches, newest first.
func (s *SearchService) ListHistory(ctx context.Context, userID string, limit int) ([]domain.Search, error) {
	return s.searches.ListByUser(ctx, userID, limit)
}

// GetLimit reports the user's quota for today.
func (s *SearchService) GetLimit(ctx context.Context, userID string) (QuotaStatus, error) {
	return s.quota.CheckLimit(ctx, userID)
}

func (s *SearchService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
