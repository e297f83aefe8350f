package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/feedback"
	"github.com/spigell/resume-screener/internal/filtering"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/metrics"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/screening"
	"github.com/spigell/resume-screener/internal/secrets"
	"github.com/spigell/resume-screener/internal/similarity"
	"github.com/spigell/resume-screener/internal/similarity/gemini"
	"github.com/spigell/resume-screener/internal/similarity/huggingface"
	"github.com/spigell/resume-screener/internal/similarity/local"
	"github.com/spigell/resume-screener/internal/skills"
)

const (
	PromptShowResults      = "Show results"
	PromptReportByStrength = "Report by strength"
	PromptResultsToFile    = "Dump results to file"
	PromptExit             = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowResults, PromptReportByStrength, PromptResultsToFile, PromptExit},
}

var scoreCmd = &cobra.Command{
	Use:   "score [flags] <resume files...>",
	Short: "Score resumes against a job description",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("job", "J", "", "file with the job description (text, pdf or docx)")
	scoreCmd.Flags().String("job-text", "", "job description given inline")
	scoreCmd.Flags().BoolP("auto-approve", "y", false, "print the results and exit without asking")
	scoreCmd.Flags().String("metrics-file", "", "write prometheus metrics in text format to this file when done")
	scoreCmd.Flags().StringP("backend", "b", "", "similarity backend: huggingface, gemini or local")
	scoreCmd.Flags().IntP("workers", "w", 0, "resumes scored concurrently")
	scoreCmd.Flags().Float64("minimum-score", 0, "hide resumes scoring below this value")
	scoreCmd.Flags().Int("top", 0, "keep only the N best resumes")
	scoreCmd.Flags().Bool("hide-failed", false, "hide resumes that could not be scored")

	bindFlag("similarity.backend", "backend")
	bindFlag("screening.workers", "workers")
	bindFlag("filters.minimum-score", "minimum-score")
	bindFlag("filters.top", "top")
	bindFlag("filters.hide-failed", "hide-failed")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, scoreCmd.Flags().Lookup(flag)); err != nil {
		log.Fatalf("binding %s flag: %v", flag, err)
	}
}

// score is the main command for the cli.
func score(cmd *cobra.Command, paths []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	jobDescription, err := readJobDescription(cmd)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	screener, err := buildScreener(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the screener", zap.Error(err))
	}

	candidates := readCandidates(paths, logger)
	results := screener.ScreenAll(ctx, jobDescription, candidates)

	if ctx.Err() != nil {
		logger.Warn("screening interrupted", zap.Int("resumes", results.Len()))
	}

	filterCfg := &filtering.Config{
		MinimumScore: config.Filters.MinimumScore,
		Top:          config.Filters.Top,
		HideFailed:   config.Filters.HideFailed,
	}
	steps := filtering.Default()
	results, err = filtering.Run(ctx, filterCfg, filtering.Deps{Logger: logger}, steps, results)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if path := cmd.Flag("metrics-file").Value.String(); path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			logger.Error("writing metrics", zap.String("path", path), zap.Error(err))
		} else {
			logger.Info("metrics written", zap.String("path", path))
		}
	}

	if results.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no resumes left after filters"))
		return
	}

	if autoApprove, _ := cmd.Flags().GetBool("auto-approve"); autoApprove {
		printResults(cmd.OutOrStdout(), results)
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(cmd.OutOrStdout(), action, logger, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(out io.Writer, action string, logger *zap.Logger, results *screening.Results) error {
	switch action {
	case PromptShowResults:
		printResults(out, results)
		return nil
	case PromptReportByStrength:
		pretty, _ := json.MarshalIndent(results.ReportByStrength(), "", "  ")
		logger.Info(string(pretty), zap.Int("resumes count", results.Len()))
		return nil
	case PromptResultsToFile:
		filename, err := results.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printResults(out io.Writer, results *screening.Results) {
	for i, res := range results.Items {
		fmt.Fprintf(out, "%d. %s  %.2f%%  %s", i+1, res.Name, res.Score, res.Feedback.Strength)
		if res.Failed() {
			fmt.Fprintf(out, "  [%s]", res.Status)
		}
		fmt.Fprintf(out, "\n   %s\n", res.Feedback.Summary)
		if len(res.Feedback.MissingKeywords) > 0 {
			fmt.Fprintf(out, "   missing: %s\n", strings.Join(res.Feedback.MissingKeywords, ", "))
		}
	}
}

func readJobDescription(cmd *cobra.Command) (string, error) {
	if inline := strings.TrimSpace(cmd.Flag("job-text").Value.String()); inline != "" {
		return inline, nil
	}

	path := strings.TrimSpace(cmd.Flag("job").Value.String())
	if path == "" {
		return "", errors.New("either --job or --job-text is required")
	}

	jd, err := resume.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(jd) == "" {
		return "", fmt.Errorf("job description %q is empty", path)
	}
	return jd, nil
}

// readCandidates never fails: unreadable files become candidates without text.
func readCandidates(paths []string, logger *zap.Logger) []screening.Candidate {
	candidates := make([]screening.Candidate, 0, len(paths))
	for _, path := range paths {
		body, err := resume.ReadFile(path)
		if err != nil {
			logger.Warn("could not read resume", zap.String("path", path), zap.Error(err))
			body = ""
		}
		candidates = append(candidates, screening.Candidate{Name: filepath.Base(path), Text: body})
	}
	return candidates
}

func buildScreener(ctx context.Context, config *Config, logger *zap.Logger) (*screening.Screener, error) {
	vocabulary := skills.Default()
	if path := strings.TrimSpace(config.Skills.VocabularyFile); path != "" {
		v, err := skills.LoadFile(path)
		if err != nil {
			return nil, err
		}
		vocabulary = v
	}
	logger.Debug("skill vocabulary loaded", zap.Int("terms", vocabulary.Len()))

	generator, err := buildGenerator(config.Feedback, vocabulary)
	if err != nil {
		return nil, err
	}

	backend, err := buildBackend(ctx, config.Similarity, logger)
	if err != nil {
		return nil, fmt.Errorf("building similarity backend: %w", err)
	}

	client := similarity.NewClient(backend, retryPolicy(config.Similarity), calibration(config.Similarity), logger)

	return screening.New(client, skills.NewExtractor(vocabulary), generator, config.Screening.Workers, logger), nil
}

func buildGenerator(cfg *FeedbackConfig, vocabulary *skills.Vocabulary) (*feedback.Generator, error) {
	opts := feedback.Options{Style: feedback.Style(cfg.Style), MaxMissing: cfg.MaxMissing}
	if path := strings.TrimSpace(cfg.TemplateFile); path != "" {
		tmpl, err := feedback.LoadTemplate(path)
		if err != nil {
			return nil, err
		}
		opts.Template = tmpl
	}
	return feedback.New(vocabulary, opts)
}

func buildBackend(ctx context.Context, cfg *SimilarityConfig, logger *zap.Logger) (similarity.Backend, error) {
	switch name := strings.ToLower(strings.TrimSpace(cfg.Backend)); name {
	case "", "huggingface":
		token, err := secrets.Load(secrets.Source{
			Name: "huggingface token",
			File: cfg.HuggingFace.TokenFile,
			Env:  "HF_TOKEN",
		})
		if err != nil {
			// scoring reports every resume as unauthorized without calling the service
			logger.Warn("huggingface token is not available",
				zap.Error(err),
				zap.String("hint", "set HF_TOKEN, HF_TOKEN_FILE or similarity.huggingface.token-file"),
			)
		}
		return huggingface.New(logger, cfg.HuggingFace.URL, token), nil
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set similarity.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}
		backend, err := gemini.New(ctx, logger, apiKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case "local":
		return local.New(), nil
	default:
		return nil, fmt.Errorf("unsupported similarity backend: %s", name)
	}
}

func retryPolicy(cfg *SimilarityConfig) similarity.RetryPolicy {
	policy := similarity.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	policy.AttemptTimeout = cfg.AttemptTimeout
	policy.ColdStartBackoff = cfg.ColdStartBackoff
	policy.TransientBackoff = cfg.TransientBackoff
	return policy
}

func calibration(cfg *SimilarityConfig) similarity.Calibration {
	if cfg.Calibration == nil {
		return similarity.DefaultCalibration()
	}
	return similarity.Calibration{
		Enabled:    cfg.Calibration.Enabled,
		Multiplier: cfg.Calibration.Multiplier,
		Ceiling:    cfg.Calibration.Ceiling,
	}
}
