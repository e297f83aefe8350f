package filtering

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/screening"
)

type hideFailedFilter struct {
	disabled bool
	reason   string
	hide     bool
}

// NewHideFailed creates a filter that removes results whose score comes from a failure.
func NewHideFailed() Filter {
	return &hideFailedFilter{}
}

func (f *hideFailedFilter) Name() string { return "hide_failed" }

func (f *hideFailedFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *hideFailedFilter) IsEnabled() bool { return !f.disabled }

func (f *hideFailedFilter) Validate(cfg *Config) error {
	f.hide = cfg != nil && cfg.HideFailed
	return nil
}

func (f *hideFailedFilter) Apply(_ context.Context, deps Deps, r *screening.Results) (*screening.Results, Step, error) {
	initial := r.Len()
	if !f.hide {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	excluded := r.Exclude(func(res *screening.Result) bool { return res.Failed() })
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("hiding resumes that could not be scored",
			zap.Strings("excluded_resumes", excluded),
			zap.Int("resumes_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *hideFailedFilter) Status() Status {
	details := map[string]string{"hide_failed": strconv.FormatBool(f.hide)}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type minimumScoreFilter struct {
	disabled bool
	reason   string
	minimum  float64
}

// NewMinimumScore creates a filter that removes results scoring below the configured minimum.
func NewMinimumScore() Filter {
	return &minimumScoreFilter{}
}

func (f *minimumScoreFilter) Name() string { return "minimum_score" }

func (f *minimumScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minimumScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *minimumScoreFilter) Validate(cfg *Config) error {
	f.minimum = 0
	if cfg != nil {
		f.minimum = cfg.MinimumScore
	}
	if f.minimum < 0 || f.minimum > 100 {
		return fmt.Errorf("minimum score %.2f is outside 0..100", f.minimum)
	}
	return nil
}

func (f *minimumScoreFilter) Apply(_ context.Context, deps Deps, r *screening.Results) (*screening.Results, Step, error) {
	initial := r.Len()
	if f.minimum == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	excluded := r.Exclude(func(res *screening.Result) bool { return res.Score < f.minimum })
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding resumes below minimum score",
			zap.Float64("minimum_score", f.minimum),
			zap.Strings("excluded_resumes", excluded),
			zap.Int("resumes_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *minimumScoreFilter) Status() Status {
	details := map[string]string{"minimum_score": fmt.Sprintf("%.2f", f.minimum)}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type topFilter struct {
	disabled bool
	reason   string
	limit    int
}

// NewTop creates a filter that keeps only the best scored results.
func NewTop() Filter {
	return &topFilter{}
}

func (f *topFilter) Name() string { return "top" }

func (f *topFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *topFilter) IsEnabled() bool { return !f.disabled }

func (f *topFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg != nil {
		f.limit = cfg.Top
	}
	if f.limit < 0 {
		return errors.New("top must not be negative")
	}
	return nil
}

func (f *topFilter) Apply(_ context.Context, deps Deps, r *screening.Results) (*screening.Results, Step, error) {
	initial := r.Len()
	if f.limit == 0 || initial <= f.limit {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	r.Sort()
	var excluded []string
	for _, res := range r.Items[f.limit:] {
		excluded = append(excluded, res.Name)
	}
	r.Items = r.Items[:f.limit]

	if deps.Logger != nil {
		deps.Logger.Info("keeping top resumes",
			zap.Int("top", f.limit),
			zap.Strings("excluded_resumes", excluded),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *topFilter) Status() Status {
	details := map[string]string{"top": strconv.Itoa(f.limit)}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
