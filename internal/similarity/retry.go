package similarity

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts      = 5
	defaultColdStartBackoff = 5 * time.Second
	defaultTransientBackoff = time.Second
	defaultAttemptTimeout   = 30 * time.Second
)

// RetryPolicy is a bounded retry loop with classified outcomes: fatal errors
// stop immediately, cold starts wait ColdStartBackoff and anything else waits
// TransientBackoff before the next attempt.
type RetryPolicy struct {
	MaxAttempts      int
	ColdStartBackoff time.Duration
	TransientBackoff time.Duration
	// AttemptTimeout bounds a single call to the service.
	AttemptTimeout time.Duration
	// Classify defaults to the package level Classify.
	Classify func(error) Outcome
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Number  int
	Err     error
	Outcome Outcome
	Wait    time.Duration
}

// DefaultRetryPolicy returns the reference schedule: five attempts, 5s after a
// cold start and 1s after any other transient failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      defaultMaxAttempts,
		ColdStartBackoff: defaultColdStartBackoff,
		TransientBackoff: defaultTransientBackoff,
		AttemptTimeout:   defaultAttemptTimeout,
		Classify:         Classify,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.ColdStartBackoff < 0 {
		p.ColdStartBackoff = 0
	}
	if p.TransientBackoff < 0 {
		p.TransientBackoff = 0
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = defaultAttemptTimeout
	}
	if p.Classify == nil {
		p.Classify = Classify
	}
	return p
}

// MaxDuration is the worst-case wall time of Run.
func (p RetryPolicy) MaxDuration() time.Duration {
	p = p.withDefaults()
	wait := max(p.ColdStartBackoff, p.TransientBackoff)
	return time.Duration(p.MaxAttempts)*p.AttemptTimeout + time.Duration(p.MaxAttempts-1)*wait
}

// Run calls op until it succeeds, fails fatally or the attempts are spent, and
// returns how many attempts were made with the last error. A nil timer uses
// real time. Once ctx is done no further attempt starts, but an attempt that
// is already running keeps its own AttemptTimeout.
func (p RetryPolicy) Run(ctx context.Context, timer backoff.Timer, op func(context.Context) error, notify func(Attempt)) (int, error) {
	p = p.withDefaults()

	schedule := &classifiedBackOff{policy: p}
	policy := backoff.WithContext(backoff.WithMaxRetries(schedule, uint64(p.MaxAttempts-1)), ctx)

	attempts := 0
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempts++
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.AttemptTimeout)
		defer cancel()

		err := op(attemptCtx)
		schedule.last = p.Classify(err)
		if schedule.last == OutcomeFatal {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) {
			notify(Attempt{Number: attempts, Err: err, Outcome: schedule.last, Wait: wait})
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, policy, onRetry, timer)
	return attempts, err
}

// classifiedBackOff picks the wait from the outcome of the previous attempt.
type classifiedBackOff struct {
	policy RetryPolicy
	last   Outcome
}

func (b *classifiedBackOff) NextBackOff() time.Duration {
	if b.last == OutcomeColdStart {
		return b.policy.ColdStartBackoff
	}
	return b.policy.TransientBackoff
}

func (b *classifiedBackOff) Reset() {}
