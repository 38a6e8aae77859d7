// Package dispatch fans a normalized report out to every registered
// subscriber. Each delivery runs in its own goroutine under a time box and a
// failure in one subscriber never reaches the others or the caller.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
	"github.com/couchcryptid/ecowitt-ingest/internal/observability"
)

// ErrTimeout is reported for a subscriber that did not return within the
// dispatch timeout. The subscriber goroutine is abandoned, not killed.
var ErrTimeout = errors.New("subscriber timed out")

// Subscriber receives normalized reports.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, r domain.Report) error
}

// SubscriberFunc adapts a function to a Subscriber.
type SubscriberFunc struct {
	ID string
	Fn func(ctx context.Context, r domain.Report) error
}

func (f SubscriberFunc) Name() string { return f.ID }

func (f SubscriberFunc) Deliver(ctx context.Context, r domain.Report) error {
	return f.Fn(ctx, r)
}

// Result is the outcome of one delivery.
type Result struct {
	Subscriber string
	Err        error
	Duration   time.Duration
}

// TimedOut reports whether the delivery hit the dispatch timeout.
func (r Result) TimedOut() bool { return errors.Is(r.Err, ErrTimeout) }

// Dispatcher delivers reports to a set of subscribers.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers []Subscriber

	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Dispatcher that gives every subscriber at most timeout per
// report.
func New(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds s to the fan-out set.
func (d *Dispatcher) Register(s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, s)
	d.logger.Info("subscriber registered", "subscriber", s.Name())
}

// Len returns the number of registered subscribers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// Dispatch delivers r to every subscriber concurrently and waits until each
// has returned or timed out. Results are in registration order. Dispatch
// returns no error: failures are captured per subscriber.
func (d *Dispatcher) Dispatch(ctx context.Context, r domain.Report) []Result {
	d.mu.RLock()
	subs := make([]Subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.RUnlock()

	results := make([]Result, len(subs))
	var wg sync.WaitGroup
	for i, s := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.deliver(ctx, s, r)
		}()
	}
	wg.Wait()

	for _, res := range results {
		d.record(res, r)
	}
	return results
}

// deliver runs one subscriber under the time box. The subscriber runs in a
// further goroutine so that one ignoring ctx cannot hold up Dispatch; its
// result channel is buffered so the abandoned goroutine can always exit.
func (d *Dispatcher) deliver(ctx context.Context, s Subscriber, r domain.Report) Result {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("subscriber panic: %v\n%s", p, debug.Stack())
			}
		}()
		done <- s.Deliver(ctx, r)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
		}
	}
	return Result{Subscriber: s.Name(), Err: err, Duration: time.Since(start)}
}

func (d *Dispatcher) record(res Result, r domain.Report) {
	outcome := "success"
	switch {
	case res.TimedOut():
		outcome = "timeout"
	case res.Err != nil:
		outcome = "error"
	}
	d.metrics.DispatchOutcomes.WithLabelValues(res.Subscriber, outcome).Inc()
	d.metrics.DispatchDuration.WithLabelValues(res.Subscriber).Observe(res.Duration.Seconds())

	if res.Err != nil {
		d.logger.Warn("subscriber delivery failed",
			"subscriber", res.Subscriber,
			"report_id", r.ID,
			"outcome", outcome,
			"error", res.Err,
		)
	}
}
