// Package skills holds the curated skill vocabulary and finds its terms in free text.
package skills

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Term is a single vocabulary entry.
type Term struct {
	// Key is the canonical lower-case matching form, possibly several words.
	Key string
	// Display is the preferred human-facing spelling.
	Display string
	// Category groups related terms, e.g. "languages" or "databases".
	Category string
}

// Vocabulary is a fixed set of terms. It is read-only after construction and
// safe to share between goroutines.
type Vocabulary struct {
	terms   map[string]Term
	keys    []string
	display map[string]string
}

type vocabularyFile struct {
	Categories map[string][]string `yaml:"categories"`
	Display    map[string]string   `yaml:"display"`
}

var loadDefault = sync.OnceValues(func() (*Vocabulary, error) {
	return Parse(defaultVocabulary)
})

// Default returns the compiled-in vocabulary.
func Default() *Vocabulary {
	v, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return v
}

// LoadFile reads a YAML vocabulary in the same layout as the embedded one.
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary file %q: %w", path, err)
	}
	return v, nil
}

// Parse decodes a YAML vocabulary document.
func Parse(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}

	v := New(file.Categories, file.Display)
	if v.Len() == 0 {
		return nil, fmt.Errorf("vocabulary has no terms")
	}
	return v, nil
}

// New builds a vocabulary from terms grouped by category and a table of
// display overrides. Keys are folded to lower case with single spaces; a key
// listed under several categories keeps the alphabetically first one.
func New(categories map[string][]string, display map[string]string) *Vocabulary {
	v := &Vocabulary{
		terms:   make(map[string]Term),
		display: make(map[string]string, len(display)),
	}

	for key, shown := range display {
		if key = foldKey(key); key != "" && strings.TrimSpace(shown) != "" {
			v.display[key] = strings.TrimSpace(shown)
		}
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	caser := cases.Title(language.English)
	for _, category := range names {
		for _, raw := range categories[category] {
			key := foldKey(raw)
			if key == "" {
				continue
			}
			if _, ok := v.terms[key]; ok {
				continue
			}

			shown, ok := v.display[key]
			if !ok {
				shown = caser.String(key)
			}

			v.terms[key] = Term{Key: key, Display: shown, Category: category}
			v.keys = append(v.keys, key)
		}
	}
	sort.Strings(v.keys)

	return v
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.keys)
}

// Keys returns the matching keys in alphabetical order.
func (v *Vocabulary) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Has reports whether key is part of the vocabulary.
func (v *Vocabulary) Has(key string) bool {
	_, ok := v.terms[foldKey(key)]
	return ok
}

// Term looks up a vocabulary entry.
func (v *Vocabulary) Term(key string) (Term, bool) {
	t, ok := v.terms[foldKey(key)]
	return t, ok
}

// Display returns the preferred spelling of key. Keys outside the vocabulary
// use the override table and fall back to title case.
func (v *Vocabulary) Display(key string) string {
	key = foldKey(key)
	if t, ok := v.terms[key]; ok {
		return t.Display
	}
	if shown, ok := v.display[key]; ok {
		return shown
	}
	return cases.Title(language.English).String(key)
}

// DisplayAll maps keys to display forms sorted case-insensitively, ties broken by the exact spelling.
func (v *Vocabulary) DisplayAll(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, v.Display(key))
	}

	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})

	return out
}

func foldKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}
