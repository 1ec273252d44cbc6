package anchor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/airbladder/core"
	"github.com/lixenwraith/airbladder/parameter"
)

// Positioner is what the retry loop drives; *Tracker implements it
type Positioner interface {
	RefreshPosition(slots []Slot) Outcome
	IsSettled() bool
}

// Retrier runs at most one bounded positioning sequence at a time
// A new Schedule supersedes the running one; the new sequence starts only after the old goroutine exits
type Retrier struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	maxAttempts int
	interval    time.Duration
	logger      *slog.Logger

	attempts atomic.Int64 // attempts in the latest sequence
	failures atomic.Int64 // exhausted sequences since creation
}

// NewRetrier creates a retrier; non-positive bounds fall back to the defaults
func NewRetrier(maxAttempts int, interval time.Duration, logger *slog.Logger) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = parameter.AnchorRetryAttempts
	}
	if interval <= 0 {
		interval = parameter.AnchorRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		interval:    interval,
		logger:      logger.With("component", "anchor_retry"),
	}
}

// Schedule cancels any in-flight sequence and starts a new one against target
func (r *Retrier) Schedule(target Positioner, source SlotSource) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	prevCancel, prevDone := r.cancel, r.done
	r.cancel, r.done = cancel, done
	r.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}

	core.GoContained(r.logger, "anchor_retry", func() {
		defer close(done)
		if prevDone != nil {
			<-prevDone
		}
		r.run(ctx, target, source)
	})
}

func (r *Retrier) run(ctx context.Context, target Positioner, source SlotSource) {
	r.attempts.Store(0)

	timer := time.NewTimer(r.interval)
	timer.Stop()
	defer timer.Stop()

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		r.attempts.Add(1)
		var slots []Slot
		if source != nil {
			slots = source()
		}
		outcome := target.RefreshPosition(slots)
		if target.IsSettled() {
			r.logger.Debug("gauge positioned", "slot", int(outcome.Slot), "attempt", attempt)
			return
		}

		if attempt == r.maxAttempts {
			break
		}

		timer.Reset(r.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	r.failures.Add(1)
	r.logger.Warn("failed to position gauge", "attempts", r.maxAttempts)
}

// Cancel stops the running sequence, if any, and waits for it to exit
func (r *Retrier) Cancel() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wait blocks until the latest sequence finishes
func (r *Retrier) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Attempts returns the attempt count of the latest sequence
func (r *Retrier) Attempts() int {
	return int(r.attempts.Load())
}

// Failures returns how many sequences ran out of attempts
func (r *Retrier) Failures() int {
	return int(r.failures.Load())
}
