package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/domain"
)

// SearchProcessor runs the pipeline for one search to a terminal status.
type SearchProcessor interface {
	ProcessSearch(ctx context.Context, job domain.SearchJob)
}

// SearchRunner consumes jobs with a fixed number of goroutines.
type SearchRunner struct {
	queue       Queue
	processor   SearchProcessor
	concurrency int
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSearchRunner builds a runner; concurrency below one is treated as one.
func NewSearchRunner(queue Queue, processor SearchProcessor, concurrency int, logger *zap.Logger) *SearchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchRunner{queue: queue, processor: processor, concurrency: concurrency, logger: logger}
}

// Start launches the consumers.
func (r *SearchRunner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, r.cancel = context.WithCancel(ctx)

	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.consume(ctx, i)
	}
	r.logger.Info("search runner started", zap.Int("concurrency", r.concurrency))
}

// Stop stops taking new jobs and waits for in-flight searches to finish.
func (r *SearchRunner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *SearchRunner) consume(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With(zap.Int("consumer", id))

	for {
		job, err := r.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue search job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// In-flight searches are never cancelled, shutdown included.
		r.processor.ProcessSearch(context.WithoutCancel(ctx), job)
	}
}
