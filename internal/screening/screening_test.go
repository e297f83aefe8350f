package screening

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/feedback"
	"github.com/spigell/resume-screener/internal/similarity"
	"github.com/spigell/resume-screener/internal/skills"
)

// stubScorer returns a fixed score per resume text.
type stubScorer struct {
	mu     sync.Mutex
	scores map[string]similarity.Score
	calls  []string
	hook   func()
}

func (s *stubScorer) Score(_ context.Context, _ string, resume string) similarity.Score {
	s.mu.Lock()
	s.calls = append(s.calls, resume)
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if score, ok := s.scores[resume]; ok {
		return score
	}
	return similarity.Score{Value: 50, Raw: 38.46, Status: similarity.StatusOK, Attempts: 1}
}

func (s *stubScorer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newScreener(t *testing.T, scorer Scorer, workers int) *Screener {
	t.Helper()

	gen, err := feedback.New(skills.Default(), feedback.Options{})
	if err != nil {
		t.Fatalf("feedback.New: %v", err)
	}
	return New(scorer, skills.NewExtractor(skills.Default()), gen, workers, zap.NewNop())
}

func ok(v float64) similarity.Score {
	return similarity.Score{Value: v, Raw: v, Status: similarity.StatusOK, Attempts: 1}
}

func TestEvaluateScenarioA(t *testing.T) {
	t.Parallel()

	resume := "Experienced Java developer, used Kubernetes and GCP"
	scorer := &stubScorer{scores: map[string]similarity.Score{
		"Experienced Java developer used Kubernetes and GCP": ok(42),
	}}
	s := newScreener(t, scorer, 1)

	res := s.Evaluate(context.Background(), "Looking for a Python developer with AWS and Docker experience", Candidate{Name: "a.pdf", Text: resume})

	if res.Status != StatusOK || res.Score != 42 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := strings.Join(res.Feedback.MissingKeywords, ","); got != "AWS,Docker,Python" {
		t.Fatalf("expected missing AWS,Docker,Python, got %s", got)
	}
	if res.Feedback.Strength != feedback.LowRelevance {
		t.Fatalf("expected Low Relevance, got %q", res.Feedback.Strength)
	}
	if calls := scorer.Calls(); len(calls) != 1 || calls[0] != "Experienced Java developer used Kubernetes and GCP" {
		t.Fatalf("expected normalized resume to be scored, got %v", calls)
	}
}

func TestEvaluateScenarioBUnreadable(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{}
	s := newScreener(t, scorer, 1)

	for _, body := range []string{"", "   \n\t"} {
		res := s.Evaluate(context.Background(), "Go developer", Candidate{Name: "broken.pdf", Text: body})
		if res.Status != StatusUnreadable || res.Score != 0 {
			t.Fatalf("expected unreadable zero result, got %+v", res)
		}
		if !strings.Contains(res.Feedback.Summary, "Could not read") {
			t.Fatalf("expected could-not-read summary, got %q", res.Feedback.Summary)
		}
		if res.Feedback.Strength != feedback.Unreadable {
			t.Fatalf("expected Error strength, got %q", res.Feedback.Strength)
		}
	}
	if len(scorer.Calls()) != 0 {
		t.Fatalf("expected no scoring calls, got %v", scorer.Calls())
	}
}

func TestEvaluateFailureStatuses(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: map[string]similarity.Score{
		"denied": {Status: similarity.StatusUnauthorized, Attempts: 1},
		"down":   {Status: similarity.StatusUnavailable, Attempts: 5},
	}}
	s := newScreener(t, scorer, 1)

	denied := s.Evaluate(context.Background(), "python", Candidate{Name: "denied", Text: "denied"})
	if denied.Status != StatusUnauthorized || denied.Score != 0 || !denied.Failed() {
		t.Fatalf("unexpected result %+v", denied)
	}
	down := s.Evaluate(context.Background(), "python", Candidate{Name: "down", Text: "down"})
	if down.Status != StatusUnavailable || down.Attempts != 5 {
		t.Fatalf("unexpected result %+v", down)
	}
	if down.Feedback.Strength != feedback.LowRelevance {
		t.Fatalf("expected zero score to read as Low Relevance, got %q", down.Feedback.Strength)
	}
}

func TestScreenAllSortsAndKeepsGoing(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: map[string]similarity.Score{
		"alpha":   ok(70),
		"bravo":   ok(90),
		"charlie": {Status: similarity.StatusUnavailable, Attempts: 5},
		"delta":   ok(70),
	}}
	s := newScreener(t, scorer, 3)

	results := s.ScreenAll(context.Background(), "go developer", []Candidate{
		{Name: "d", Text: "delta"},
		{Name: "c", Text: "charlie"},
		{Name: "e", Text: ""},
		{Name: "a", Text: "alpha"},
		{Name: "b", Text: "bravo"},
	})

	if results.Len() != 5 {
		t.Fatalf("expected 5 results, got %d", results.Len())
	}
	if got := strings.Join(results.Names(), ","); got != "b,a,d,c,e" {
		t.Fatalf("unexpected order %s", got)
	}
	if len(scorer.Calls()) != 4 {
		t.Fatalf("expected 4 scoring calls, got %d", len(scorer.Calls()))
	}
}

func TestScreenAllStopsAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var scored int32
	scorer := &stubScorer{}
	scorer.hook = func() {
		if atomic.AddInt32(&scored, 1) == 1 {
			cancel()
		}
	}
	s := newScreener(t, scorer, 1)

	candidates := []Candidate{
		{Name: "1", Text: "one"},
		{Name: "2", Text: "two"},
		{Name: "3", Text: "three"},
		{Name: "4", Text: "four"},
	}
	results := s.ScreenAll(ctx, "go", candidates)

	if results.Len() != len(candidates) {
		t.Fatalf("expected a result per candidate, got %d", results.Len())
	}
	if n := len(scorer.Calls()); n != 1 {
		t.Fatalf("expected a single scoring call, got %d", n)
	}

	canceled := 0
	for _, res := range results.Items {
		if res.Status == StatusCanceled {
			canceled++
			if res.Feedback.Strength != feedback.NotScored {
				t.Fatalf("expected Not Scored strength, got %q", res.Feedback.Strength)
			}
		}
	}
	if canceled != 3 {
		t.Fatalf("expected 3 canceled results, got %d", canceled)
	}
}

func TestResultsExcludeAndReport(t *testing.T) {
	t.Parallel()

	results := &Results{Items: []*Result{
		{Name: "a", Score: 85, Status: StatusOK, Feedback: feedback.Result{Strength: feedback.TopContender}},
		{Name: "b", Score: 0, Status: StatusUnreadable, Feedback: feedback.UnreadableResult()},
		{Name: "c", Score: 65, Status: StatusOK, Feedback: feedback.Result{Strength: feedback.StrongPotential, MissingKeywords: []string{"AWS", "Go"}}},
	}}

	excluded := results.Exclude(func(r *Result) bool { return r.Failed() })
	if len(excluded) != 1 || excluded[0] != "b" {
		t.Fatalf("unexpected excluded %v", excluded)
	}
	if results.Len() != 2 {
		t.Fatalf("expected 2 results left, got %d", results.Len())
	}

	report := results.ReportByStrength()
	strong := report[feedback.StrongPotential]
	if len(strong) != 1 || strong[0]["missing_keywords"] != "AWS, Go" || strong[0]["score"] != "65.00" {
		t.Fatalf("unexpected report entry %v", strong)
	}
	if len(report[feedback.TopContender]) != 1 {
		t.Fatalf("expected a top contender entry")
	}
}

func TestResultsDumpToTmpFile(t *testing.T) {
	t.Parallel()

	results := &Results{Items: []*Result{
		{Name: "a.pdf", Score: 65, Status: StatusOK, Attempts: 1, Feedback: feedback.Result{Summary: "s", Strength: feedback.StrongPotential, MissingKeywords: []string{}}},
	}}

	path, err := results.DumpToTmpFile()
	if err != nil {
		t.Fatalf("DumpToTmpFile returned error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var decoded struct {
		Results []struct {
			Name     string  `json:"name"`
			Score    float64 `json:"score"`
			Status   string  `json:"status"`
			Feedback struct {
				Strength        string   `json:"strength"`
				MissingKeywords []string `json:"missing_keywords"`
			} `json:"feedback"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Name != "a.pdf" || decoded.Results[0].Feedback.Strength != "Strong Potential" {
		t.Fatalf("unexpected dump %s", data)
	}
}
