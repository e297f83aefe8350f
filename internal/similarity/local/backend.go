// Package local scores texts in process with TF-IDF vectors, for offline use
// and as a fallback when no remote credential is available.
package local

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/spigell/resume-screener/internal/similarity"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}.+#]*`)

// Backend fits a TF-IDF model on every request's source and candidates.
type Backend struct {
	stopwords map[string]struct{}
}

func New() *Backend {
	return &Backend{stopwords: defaultStopwords()}
}

func (b *Backend) Name() string  { return "local" }
func (b *Backend) Model() string { return "tfidf" }

// Similarity never fails; texts without usable tokens score 0.
func (b *Backend) Similarity(ctx context.Context, source string, candidates []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([][]string, 0, len(candidates)+1)
	docs = append(docs, b.tokenize(source))
	for _, c := range candidates {
		docs = append(docs, b.tokenize(c))
	}

	vocabulary, idf := fit(docs)
	query := embed(docs[0], vocabulary, idf)

	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = similarity.Cosine(query, embed(docs[i+1], vocabulary, idf))
	}

	return scores, nil
}

func (b *Backend) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		tok = strings.TrimRight(tok, ".")
		if tok == "" {
			continue
		}
		if _, stop := b.stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// fit builds a sorted vocabulary with smoothed IDF weights.
func fit(docs [][]string) (map[string]int, []float64) {
	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return vocabulary, idf
}

func embed(tokens []string, vocabulary map[string]int, idf []float64) []float64 {
	vec := make([]float64, len(idf))
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		if idx, ok := vocabulary[tok]; ok {
			vec[idx]++
		}
	}
	total := float64(len(tokens))
	for i := range vec {
		vec[i] = vec[i] / total * idf[i]
	}

	return vec
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these",
		"those", "from", "into", "about", "we", "you", "our", "your", "will", "can", "have", "has",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var _ similarity.Backend = (*Backend)(nil)
