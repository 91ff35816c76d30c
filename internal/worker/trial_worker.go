package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TrialChecker warns and expires trials.
type TrialChecker interface {
	CheckTrials(ctx context.Context) error
}

// TrialScheduler runs the trial check once at start and then on every tick.
type TrialScheduler struct {
	checker  TrialChecker
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTrialScheduler creates a scheduler.
func NewTrialScheduler(checker TrialChecker, interval time.Duration, logger *zap.Logger) *TrialScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialScheduler{checker: checker, interval: interval, logger: logger}
}

// Start begins the scheduler loop.
func (s *TrialScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *TrialScheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *TrialScheduler) tick(ctx context.Context) {
	if err := s.checker.CheckTrials(ctx); err != nil {
		s.logger.Error("trial expiry check", zap.Error(err))
	}
}
