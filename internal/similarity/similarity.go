package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/metrics"
)

// Backend compares a source sentence against candidate sentences and returns
// one similarity in [-1, 1] per candidate, in order.
type Backend interface {
	Name() string
	Model() string
	Similarity(ctx context.Context, source string, candidates []string) ([]float64, error)
}

// Status says how a score came about.
type Status string

const (
	StatusOK           Status = "ok"
	StatusUnauthorized Status = "unauthorized"
	StatusUnavailable  Status = "unavailable"
	StatusCanceled     Status = "canceled"
)

// Score is the outcome of one comparison. Value is 0 whenever Status is not
// StatusOK.
type Score struct {
	Value    float64
	Raw      float64
	Status   Status
	Attempts int
	Err      error
}

// OK reports whether the service produced the score.
func (s Score) OK() bool {
	return s.Status == StatusOK
}

// Client scores resumes against a job description through a Backend with
// bounded retries. It is safe for concurrent use.
type Client struct {
	backend     Backend
	policy      RetryPolicy
	calibration Calibration
	logger      *zap.Logger

	newTimer func() backoff.Timer
}

// NewClient wires a backend with its retry policy and calibration.
func NewClient(backend Backend, policy RetryPolicy, calibration Calibration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		backend:     backend,
		policy:      policy.withDefaults(),
		calibration: calibration,
		logger:      logger.WithCommonFields(log, backend.Name(), backend.Model()),
		newTimer:    func() backoff.Timer { return nil },
	}
}

// Score returns the calibrated similarity of resume to jobDescription. It
// never returns an error: failures end up as a zero score with a non-OK
// status.
func (c *Client) Score(ctx context.Context, jobDescription, resume string) Score {
	var similarity float64
	name := c.backend.Name()

	op := func(attemptCtx context.Context) error {
		start := time.Now()
		values, err := c.backend.Similarity(attemptCtx, jobDescription, []string{resume})
		metrics.SimilarityRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err == nil {
			similarity, err = single(values)
		}
		metrics.SimilarityAttemptsTotal.WithLabelValues(name, c.policy.Classify(err).String()).Inc()
		return err
	}

	notify := func(a Attempt) {
		c.logger.Warn("similarity attempt failed, retrying",
			zap.Int("attempt", a.Number),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.String("outcome", a.Outcome.String()),
			zap.Duration("wait", a.Wait),
			zap.Error(a.Err),
		)
	}

	attempts, err := c.policy.Run(ctx, c.newTimer(), op, notify)
	if err == nil {
		raw := Percentage(similarity)
		score := Score{Value: c.calibration.Apply(raw), Raw: raw, Status: StatusOK, Attempts: attempts}
		c.logger.Debug("similarity scored",
			zap.Float64("raw", score.Raw),
			zap.Float64("score", score.Value),
			zap.Int("attempts", attempts),
		)
		return score
	}

	score := Score{Attempts: attempts, Err: err}
	switch {
	case errors.Is(err, ErrUnauthorized):
		score.Status = StatusUnauthorized
		c.logger.Error("similarity service refused the credential",
			zap.String("reason", "unauthorized"),
			zap.Error(err),
		)
	case errors.Is(err, ErrModelNotFound):
		score.Status = StatusUnavailable
		c.logger.Error("similarity model not found",
			zap.String("reason", "model_not_found"),
			zap.Error(err),
		)
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		score.Status = StatusCanceled
		c.logger.Info("similarity scoring canceled", zap.Int("attempts", attempts))
	default:
		score.Status = StatusUnavailable
		c.logger.Error("similarity service unavailable",
			zap.String("reason", "exhausted"),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
	return score
}

func single(values []float64) (float64, error) {
	if len(values) != 1 {
		return 0, fmt.Errorf("%w: expected 1 score, got %d", ErrMalformedResponse, len(values))
	}
	v := values[0]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: score %v is not a number", ErrMalformedResponse, v)
	}
	return v, nil
}
