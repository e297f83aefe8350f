package screening

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spigell/resume-screener/internal/feedback"
)

type Results struct {
	Items []*Result `json:"results"`
}

func (r *Results) Len() int {
	return len(r.Items)
}

// Sort orders results by score descending, then by name.
func (r *Results) Sort() {
	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Name < b.Name
	})
}

// Exclude removes the results matching pred and returns their names.
func (r *Results) Exclude(pred func(*Result) bool) []string {
	kept := r.Items[:0]
	var excluded []string
	for _, res := range r.Items {
		if pred(res) {
			excluded = append(excluded, res.Name)
			continue
		}
		kept = append(kept, res)
	}
	r.Items = kept
	return excluded
}

func (r *Results) Names() []string {
	names := make([]string, 0, len(r.Items))
	for _, res := range r.Items {
		names = append(names, res.Name)
	}
	return names
}

func (r *Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "screening_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByStrength groups results under their verdict label.
func (r *Results) ReportByStrength() map[feedback.Strength][]map[string]string {
	report := make(map[feedback.Strength][]map[string]string)
	for _, res := range r.Items {
		key := res.Feedback.Strength
		report[key] = append(report[key], map[string]string{
			"name":             res.Name,
			"score":            fmt.Sprintf("%.2f", res.Score),
			"status":           string(res.Status),
			"summary":          res.Feedback.Summary,
			"missing_keywords": strings.Join(res.Feedback.MissingKeywords, ", "),
		})
	}
	return report
}
