package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/feedback"
	"github.com/spigell/resume-screener/internal/screening"
)

func testConfig(t *testing.T, yaml string) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
			t.Fatalf("read config: %v", err)
		}
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg
}

func TestDecodeConfigDefaults(t *testing.T) {
	cfg := testConfig(t, "")

	if cfg.Similarity.Backend != "huggingface" {
		t.Fatalf("unexpected backend %q", cfg.Similarity.Backend)
	}
	if cfg.Similarity.MaxAttempts != 5 || cfg.Similarity.ColdStartBackoff != 5*time.Second || cfg.Similarity.TransientBackoff != time.Second {
		t.Fatalf("unexpected retry defaults %+v", cfg.Similarity)
	}
	if !cfg.Similarity.Calibration.Enabled || cfg.Similarity.Calibration.Multiplier != 1.30 || cfg.Similarity.Calibration.Ceiling != 98 {
		t.Fatalf("unexpected calibration defaults %+v", cfg.Similarity.Calibration)
	}
	if cfg.Feedback.MaxMissing != 7 || cfg.Feedback.Style != "narrative" {
		t.Fatalf("unexpected feedback defaults %+v", cfg.Feedback)
	}
	if cfg.Screening.Workers != 4 {
		t.Fatalf("unexpected workers %d", cfg.Screening.Workers)
	}
}

func TestDecodeConfigFromYAML(t *testing.T) {
	cfg := testConfig(t, `
similarity:
  backend: local
  cold-start-backoff: 2s
  calibration:
    enabled: false
feedback:
  style: concise
filters:
  top: 3
  hide-failed: true
`)

	if cfg.Similarity.Backend != "local" || cfg.Similarity.ColdStartBackoff != 2*time.Second {
		t.Fatalf("unexpected similarity config %+v", cfg.Similarity)
	}
	if cal := calibration(cfg.Similarity); cal.Enabled {
		t.Fatalf("expected calibration to be disabled")
	}
	if cfg.Feedback.Style != "concise" || cfg.Filters.Top != 3 || !cfg.Filters.HideFailed {
		t.Fatalf("unexpected config %+v %+v", cfg.Feedback, cfg.Filters)
	}
	if policy := retryPolicy(cfg.Similarity); policy.ColdStartBackoff != 2*time.Second || policy.MaxAttempts != 5 {
		t.Fatalf("unexpected policy %+v", policy)
	}
}

func TestBuildBackend(t *testing.T) {
	t.Setenv("HF_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := testConfig(t, "")

	cfg.Similarity.Backend = "local"
	backend, err := buildBackend(context.Background(), cfg.Similarity, zap.NewNop())
	if err != nil || backend.Name() != "local" {
		t.Fatalf("expected local backend, got %v, %v", backend, err)
	}

	cfg.Similarity.Backend = "HuggingFace"
	backend, err = buildBackend(context.Background(), cfg.Similarity, zap.NewNop())
	if err != nil || backend.Name() != "huggingface" {
		t.Fatalf("expected huggingface backend without a token, got %v, %v", backend, err)
	}

	cfg.Similarity.Backend = "gemini"
	if _, err := buildBackend(context.Background(), cfg.Similarity, zap.NewNop()); err == nil {
		t.Fatalf("expected gemini without a key to fail")
	}

	cfg.Similarity.Backend = "word2vec"
	if _, err := buildBackend(context.Background(), cfg.Similarity, zap.NewNop()); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}
}

func TestBuildScreenerLocalEndToEnd(t *testing.T) {
	cfg := testConfig(t, "similarity:\n  backend: local\n")

	screener, err := buildScreener(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildScreener returned error: %v", err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	if err := os.WriteFile(good, []byte("Python developer with AWS, Docker and Kubernetes"), 0o600); err != nil {
		t.Fatalf("write resume: %v", err)
	}

	candidates := readCandidates([]string{good, filepath.Join(dir, "missing.pdf")}, zap.NewNop())
	results := screener.ScreenAll(context.Background(), "Looking for a Python developer with AWS and Docker experience", candidates)

	if results.Len() != 2 {
		t.Fatalf("expected 2 results, got %d", results.Len())
	}
	first, second := results.Items[0], results.Items[1]
	if first.Name != "good.txt" || first.Status != screening.StatusOK || first.Score <= 0 {
		t.Fatalf("unexpected first result %+v", first)
	}
	if len(first.Feedback.MissingKeywords) != 0 {
		t.Fatalf("expected no missing skills, got %v", first.Feedback.MissingKeywords)
	}
	if second.Name != "missing.pdf" || second.Status != screening.StatusUnreadable {
		t.Fatalf("unexpected second result %+v", second)
	}
}

func TestHandleAction(t *testing.T) {
	results := &screening.Results{Items: []*screening.Result{
		{Name: "a.pdf", Score: 65, Status: screening.StatusOK, Feedback: feedback.Result{Summary: "good", Strength: feedback.StrongPotential, MissingKeywords: []string{"AWS"}}},
		{Name: "b.pdf", Status: screening.StatusUnavailable, Feedback: feedback.Result{Summary: "low", Strength: feedback.LowRelevance}},
	}}

	var out bytes.Buffer
	if err := handleAction(&out, PromptShowResults, zap.NewNop(), results); err != nil {
		t.Fatalf("show results: %v", err)
	}
	printed := out.String()
	for _, want := range []string{"1. a.pdf  65.00%  Strong Potential", "missing: AWS", "[unavailable]"} {
		if !strings.Contains(printed, want) {
			t.Fatalf("expected %q in output:\n%s", want, printed)
		}
	}

	if err := handleAction(&out, PromptExit, zap.NewNop(), results); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}
	if err := handleAction(&out, "dance", zap.NewNop(), results); err == nil {
		t.Fatalf("expected invalid action to fail")
	}
}

func TestVersionShort(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	if err := versionCmd.Flags().Set("short", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() { _ = versionCmd.Flags().Set("short", "false") })

	versionCmd.Run(versionCmd, nil)
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected output %q", out.String())
	}
}
