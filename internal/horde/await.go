package horde

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Await errors.
var (
	// ErrTimeout means the job did not finish within the caller's budget.
	ErrTimeout = errors.New("image generation timed out")

	// ErrNoWorkers means no worker can pick up the job with the
	// requested settings.
	ErrNoWorkers = errors.New("no workers available with these settings")

	// ErrFaulted means the cluster gave up on the job.
	ErrFaulted = errors.New("generation faulted")
)

// QueueError means the job sits in a queue whose estimated wait exceeds
// the remaining budget, so waiting it out is pointless.
type QueueError struct {
	WaitTime time.Duration
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queued for an estimated %s, more than the configured wait", e.WaitTime)
}

// Phase is the stage a job goes through while awaited.
type Phase int

// Await phases, in order.
const (
	PhaseQueued Phase = iota
	PhaseGenerating
	PhaseDone
)

// Progress is a snapshot reported to the caller on every poll.
type Progress struct {
	Phase         Phase
	QueuePosition int
	WaitTime      time.Duration
	Elapsed       time.Duration
	Budget        time.Duration
}

// Percent returns how much of the time budget has elapsed, 0-100.
func (p Progress) Percent() float64 {
	if p.Budget <= 0 {
		return 0
	}
	pct := 100 * float64(p.Elapsed) / float64(p.Budget)
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressFunc receives progress snapshots during Await. May be nil.
type ProgressFunc func(Progress)

// Await polls a submitted job until it finishes, then fetches and returns
// its full status. The poll interval follows the worker's own estimate:
// half the reported wait time, clamped between the configured base and
// cap. Await returns early when the budget runs out, when the queue
// estimate cannot fit the remaining budget, when no worker can serve the
// request, or when ctx is cancelled.
func (c *Client) Await(ctx context.Context, id string, budget time.Duration, onProgress ProgressFunc) (*Status, error) {
	start := time.Now()
	deadline := start.Add(budget)

	for {
		check, err := c.Check(ctx, id)
		if err != nil {
			return nil, err
		}

		switch {
		case check.Faulted:
			return nil, ErrFaulted
		case check.Done:
			report(onProgress, Progress{
				Phase:   PhaseDone,
				Elapsed: time.Since(start),
				Budget:  budget,
			})
			return c.Status(ctx, id)
		case !check.IsPossible:
			return nil, ErrNoWorkers
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, budget)
		}

		// Still queued and the estimate alone overruns the budget:
		// bail out now instead of burning the user's time.
		if check.Processing == 0 && check.WaitDuration() > remaining {
			return nil, &QueueError{WaitTime: check.WaitDuration()}
		}

		phase := PhaseQueued
		if check.Processing > 0 {
			phase = PhaseGenerating
		}
		report(onProgress, Progress{
			Phase:         phase,
			QueuePosition: check.QueuePosition,
			WaitTime:      check.WaitDuration(),
			Elapsed:       time.Since(start),
			Budget:        budget,
		})

		wait := min(max(c.config.CheckInterval, check.WaitDuration()/2), c.config.MaxCheckInterval)
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}
