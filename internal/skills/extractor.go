package skills

import (
	"regexp"
	"strings"

	"github.com/spigell/resume-screener/internal/text"
)

// Both sides of a term must touch a non-word rune or the edge of the text, so
// "java" never matches inside "javascript" and "c++" still matches before a space.
const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	boundaryAfter  = `(?:[^\p{L}\p{N}_]|$)`
)

var separators = strings.NewReplacer("/", " ", "-", " ")

// Extractor finds vocabulary terms in text. It compiles one pattern per term
// up front and is safe for concurrent use.
type Extractor struct {
	vocabulary *Vocabulary
	patterns   map[string][]*regexp.Regexp
}

// NewExtractor prepares matchers for every term of v.
func NewExtractor(v *Vocabulary) *Extractor {
	e := &Extractor{
		vocabulary: v,
		patterns:   make(map[string][]*regexp.Regexp, v.Len()),
	}

	for _, key := range v.Keys() {
		for _, form := range forms(key) {
			re := regexp.MustCompile(boundaryBefore + regexp.QuoteMeta(form) + boundaryAfter)
			e.patterns[key] = append(e.patterns[key], re)
		}
	}

	return e
}

// Extract returns every vocabulary term present in s.
func (e *Extractor) Extract(s string) Set {
	return e.match(s, e.vocabulary.Keys())
}

// ExtractFrom returns the members of keys present in s. Keys outside the
// vocabulary are ignored, so the result is always a subset of keys.
func (e *Extractor) ExtractFrom(s string, keys Set) Set {
	return e.match(s, keys.Keys())
}

// match checks each key against the case-folded text and against its
// normalized form, so "C#" in the raw text and "machine-learning" written with
// a hyphen are both found.
func (e *Extractor) match(s string, keys []string) Set {
	found := make(Set)

	folded := text.Fold(s)
	normalized := text.Fold(text.Normalize(s))
	if folded == "" && normalized == "" {
		return found
	}

	for _, key := range keys {
		for _, re := range e.patterns[key] {
			if re.MatchString(folded) || re.MatchString(normalized) {
				found.Add(key)
				break
			}
		}
	}

	return found
}

// forms lists the spellings a key is matched under: the key itself and, for
// keys containing '/' or '-', the split form normalization produces.
func forms(key string) []string {
	split := strings.Join(strings.Fields(separators.Replace(key)), " ")
	if split == "" || split == key {
		return []string{key}
	}
	return []string{key, split}
}
