// Package screening runs the matching pipeline over a job description and a
// batch of resumes.
package screening

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-screener/internal/feedback"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/metrics"
	"github.com/spigell/resume-screener/internal/similarity"
	"github.com/spigell/resume-screener/internal/skills"
	"github.com/spigell/resume-screener/internal/text"
)

// Status explains how a result's score came about.
type Status string

const (
	StatusOK           Status = "ok"
	StatusUnreadable   Status = "unreadable"
	StatusUnauthorized Status = "unauthorized"
	StatusUnavailable  Status = "unavailable"
	StatusCanceled     Status = "canceled"
)

// Scorer produces the semantic similarity score of a resume.
type Scorer interface {
	Score(ctx context.Context, jobDescription, resume string) similarity.Score
}

// Candidate is one resume to screen. An empty Text means the resume could
// not be read.
type Candidate struct {
	Name string
	Text string
}

type Result struct {
	Name     string          `json:"name"`
	Score    float64         `json:"score"`
	Status   Status          `json:"status"`
	Attempts int             `json:"attempts,omitempty"`
	Feedback feedback.Result `json:"feedback"`
}

// Failed reports whether the score is the zero sentinel of a failure rather
// than a real match score.
func (r *Result) Failed() bool {
	return r.Status != StatusOK
}

type Screener struct {
	scorer    Scorer
	extractor *skills.Extractor
	generator *feedback.Generator
	workers   int
	logger    *zap.Logger
}

func New(scorer Scorer, extractor *skills.Extractor, generator *feedback.Generator, workers int, log *zap.Logger) *Screener {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Screener{
		scorer:    scorer,
		extractor: extractor,
		generator: generator,
		workers:   workers,
		logger:    log,
	}
}

// Evaluate screens a single resume. It never fails; problems are reported
// through the result status.
func (s *Screener) Evaluate(ctx context.Context, jobDescription string, c Candidate) *Result {
	return s.evaluate(ctx, jobDescription, s.extractor.Extract(jobDescription), c)
}

// ScreenAll screens every candidate concurrently and returns results sorted
// by score. After ctx is canceled no new resume is sent for scoring.
func (s *Screener) ScreenAll(ctx context.Context, jobDescription string, candidates []Candidate) *Results {
	required := s.extractor.Extract(jobDescription)
	s.logger.Info("screening resumes",
		zap.Int("resumes", len(candidates)),
		zap.Int("workers", s.workers),
		zap.Strings("required_skills", required.Keys()),
	)

	items := make([]*Result, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, c := range candidates {
		if ctx.Err() != nil {
			items[i] = s.canceled(c)
			continue
		}
		g.Go(func() error {
			items[i] = s.evaluate(ctx, jobDescription, required, c)
			return nil
		})
	}
	_ = g.Wait()

	results := &Results{Items: items}
	results.Sort()
	return results
}

func (s *Screener) evaluate(ctx context.Context, jobDescription string, required skills.Set, c Candidate) *Result {
	log := logger.WithFields(s.logger, zap.String(logger.FieldCandidate, c.Name))

	if text.IsBlank(c.Text) {
		log.Warn("resume text is empty, skipping scoring")
		return s.record(&Result{Name: c.Name, Status: StatusUnreadable, Feedback: feedback.UnreadableResult()})
	}
	if ctx.Err() != nil {
		return s.canceled(c)
	}

	candidate := s.extractor.ExtractFrom(c.Text, required)
	score := s.scorer.Score(ctx, text.Normalize(jobDescription), text.Normalize(c.Text))

	res := &Result{
		Name:     c.Name,
		Score:    score.Value,
		Status:   statusOf(score.Status),
		Attempts: score.Attempts,
	}
	if res.Status == StatusCanceled {
		res.Feedback = feedback.CanceledResult()
		return s.record(res)
	}
	res.Feedback = s.generator.Generate(score.Value, required, candidate)

	log.Debug("resume screened",
		zap.Float64("score", res.Score),
		zap.String("status", string(res.Status)),
		zap.String("strength", string(res.Feedback.Strength)),
		zap.Int("matched_skills", candidate.Len()),
		zap.Int("required_skills", required.Len()),
	)

	return s.record(res)
}

func (s *Screener) canceled(c Candidate) *Result {
	return s.record(&Result{Name: c.Name, Status: StatusCanceled, Feedback: feedback.CanceledResult()})
}

func (s *Screener) record(res *Result) *Result {
	metrics.ScreeningResultsTotal.WithLabelValues(string(res.Status)).Inc()
	if res.Status == StatusOK {
		metrics.MatchScore.Observe(res.Score)
	}
	return res
}

func statusOf(st similarity.Status) Status {
	switch st {
	case similarity.StatusOK:
		return StatusOK
	case similarity.StatusUnauthorized:
		return StatusUnauthorized
	case similarity.StatusCanceled:
		return StatusCanceled
	default:
		return StatusUnavailable
	}
}
