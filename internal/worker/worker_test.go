package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/codefinder/internal/domain"
)

func TestMemoryQueueFIFOAndFull(t *testing.T) {
	q := NewMemoryQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.SearchJob{SearchID: "a"}))
	require.NoError(t, q.Enqueue(ctx, domain.SearchJob{SearchID: "b"}))
	assert.ErrorIs(t, q.Enqueue(ctx, domain.SearchJob{SearchID: "c"}), ErrQueueFull)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", job.SearchID)
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewMemoryQueue(1).Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingProcessor struct {
	mu      sync.Mutex
	ids     []string
	ctxErrs []error
	release chan struct{}
}

func (p *recordingProcessor) ProcessSearch(ctx context.Context, job domain.SearchJob) {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, job.SearchID)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
}

func (p *recordingProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func TestSearchRunnerProcessesJobs(t *testing.T) {
	q := NewMemoryQueue(10)
	proc := &recordingProcessor{}
	runner := NewSearchRunner(q, proc, 2, nil)
	runner.Start(context.Background())

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, q.Enqueue(context.Background(), domain.SearchJob{SearchID: id}))
	}

	assert.Eventually(t, func() bool { return len(proc.processed()) == 3 }, time.Second, 5*time.Millisecond)
	runner.Stop()
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, proc.processed())
}

func TestSearchRunnerStopWaitsForInFlightWithoutCancelling(t *testing.T) {
	q := NewMemoryQueue(1)
	proc := &recordingProcessor{release: make(chan struct{})}
	runner := NewSearchRunner(q, proc, 1, nil)
	runner.Start(context.Background())
	require.NoError(t, q.Enqueue(context.Background(), domain.SearchJob{SearchID: "slow"}))

	// give the consumer time to pick the job up
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		runner.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a search was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(proc.release)
	<-stopped
	require.Equal(t, []string{"slow"}, proc.processed())
	assert.NoError(t, proc.ctxErrs[0])
}

type countingChecker struct{ calls atomic.Int32 }

func (c *countingChecker) CheckTrials(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestTrialSchedulerRunsImmediatelyAndOnTick(t *testing.T) {
	checker := &countingChecker{}
	s := NewTrialScheduler(checker, 10*time.Millisecond, nil)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := checker.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, checker.calls.Load())
}
