// Package feedback turns a match score and the required/candidate skill sets
// into a verdict, a summary and a capped list of missing skills.
package feedback

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/spigell/resume-screener/internal/skills"
)

// Strength is the verdict label shown next to a score.
type Strength string

const (
	TopContender    Strength = "Top Contender"
	StrongPotential Strength = "Strong Potential"
	LowRelevance    Strength = "Low Relevance"
	// Unreadable marks resumes whose text could not be extracted.
	Unreadable Strength = "Error"
	NotScored  Strength = "Not Scored"
)

const (
	topThreshold    = 80.0
	strongThreshold = 60.0

	DefaultMaxMissing = 7

	unreadableSummary = "Error: Could not read text from the resume."
	canceledSummary   = "Screening was canceled before this resume was scored."
)

// Style selects one of the built-in summary templates.
type Style string

const (
	StyleNarrative Style = "narrative"
	StyleConcise   Style = "concise"
)

// Result is the feedback attached to one screened resume.
type Result struct {
	Summary         string   `json:"summary"`
	Strength        Strength `json:"strength"`
	MissingKeywords []string `json:"missing_keywords"`
}

// Options configure a Generator. Template, when set, overrides Style.
type Options struct {
	Style      Style
	MaxMissing int
	Template   string
}

// Generator is safe for concurrent use.
type Generator struct {
	vocabulary *skills.Vocabulary
	maxMissing int
	tmpl       *template.Template
}

// TemplateData is what summary templates are executed with.
type TemplateData struct {
	Score           string
	Strength        Strength
	Matched         int
	Required        int
	Missing         []string
	HasRequirements bool
}

func New(vocabulary *skills.Vocabulary, opts Options) (*Generator, error) {
	if vocabulary == nil {
		vocabulary = skills.Default()
	}

	maxMissing := opts.MaxMissing
	if maxMissing <= 0 {
		maxMissing = DefaultMaxMissing
	}

	source := opts.Template
	if strings.TrimSpace(source) == "" {
		var ok bool
		source, ok = builtin[opts.Style]
		if !ok && opts.Style != "" {
			return nil, fmt.Errorf("unknown feedback style %q", opts.Style)
		}
		if !ok {
			source = builtin[StyleNarrative]
		}
	}

	tmpl, err := template.New("summary").Funcs(funcs).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}

	return &Generator{vocabulary: vocabulary, maxMissing: maxMissing, tmpl: tmpl}, nil
}

// LoadTemplate reads a custom summary template from path.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read summary template %q: %w", path, err)
	}
	return string(data), nil
}

// Tier maps a score to its verdict. Each tier includes its lower bound.
func Tier(score float64) Strength {
	switch {
	case score >= topThreshold:
		return TopContender
	case score >= strongThreshold:
		return StrongPotential
	default:
		return LowRelevance
	}
}

// Generate never fails: a template that cannot be rendered falls back to a
// plain summary.
func (g *Generator) Generate(score float64, required, candidate skills.Set) Result {
	missing := g.vocabulary.DisplayAll(required.Difference(candidate).Keys())
	if len(missing) > g.maxMissing {
		missing = missing[:g.maxMissing]
	}

	strength := Tier(score)
	data := TemplateData{
		Score:           formatScore(score),
		Strength:        strength,
		Matched:         candidate.Len(),
		Required:        required.Len(),
		Missing:         missing,
		HasRequirements: required.Len() > 0,
	}

	var b strings.Builder
	summary := ""
	if err := g.tmpl.Execute(&b, data); err == nil {
		summary = collapse(b.String())
	}
	if summary == "" {
		summary = fmt.Sprintf("%s (%s%%).", strength, data.Score)
	}

	return Result{Summary: summary, Strength: strength, MissingKeywords: missing}
}

// UnreadableResult is the feedback for a resume whose text could not be read.
func UnreadableResult() Result {
	return Result{Summary: unreadableSummary, Strength: Unreadable, MissingKeywords: []string{}}
}

// CanceledResult is the feedback for a resume that was never scored because
// the batch was canceled.
func CanceledResult() Result {
	return Result{Summary: canceledSummary, Strength: NotScored, MissingKeywords: []string{}}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
