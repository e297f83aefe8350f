package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-screener/internal/similarity"
)

const (
	defaultModel = "text-embedding-004"
	taskType     = "SEMANTIC_SIMILARITY"
)

// embedder is the slice of the genai Models service used by Backend.
type embedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Backend scores texts by the cosine similarity of their Gemini embeddings.
type Backend struct {
	models    embedder
	modelName string
	logger    *zap.Logger
}

// New creates a Backend configured for the Gemini API backend.
func New(ctx context.Context, logger *zap.Logger, apiKey, model string) (*Backend, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required: %w", similarity.ErrUnauthorized)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newBackend(client.Models, logger, model), nil
}

func newBackend(models embedder, logger *zap.Logger, model string) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Backend{models: models, modelName: model, logger: logger}
}

func (b *Backend) Name() string {
	return "gemini"
}

func (b *Backend) Model() string {
	if b == nil {
		return ""
	}
	return b.modelName
}

// Similarity embeds the source and every candidate in one request.
func (b *Backend) Similarity(ctx context.Context, source string, candidates []string) ([]float64, error) {
	if b == nil || b.models == nil {
		return nil, errors.New("gemini backend is not initialized")
	}

	contents := make([]*genai.Content, 0, len(candidates)+1)
	contents = append(contents, textContent(source))
	for _, candidate := range candidates {
		contents = append(contents, textContent(candidate))
	}

	resp, err := b.models.EmbedContent(ctx, b.modelName, contents, &genai.EmbedContentConfig{TaskType: taskType})
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil || len(resp.Embeddings) != len(contents) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", similarity.ErrMalformedResponse, len(contents), got)
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("%w: embedding %d is empty", similarity.ErrMalformedResponse, i)
		}
		vectors[i] = toFloat64(embedding.Values)
	}

	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = similarity.Cosine(vectors[0], vectors[i+1])
	}

	b.logger.Debug("gemini embeddings compared", zap.Int("candidates", len(candidates)), zap.Int("dimensions", len(vectors[0])))

	return scores, nil
}

// classify wraps API errors with the sentinel matching their status.
func classify(err error) error {
	apiErr, ok := asAPIError(err)
	switch {
	case !ok:
		return fmt.Errorf("embed content: %w", err)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden, invalidKey(apiErr):
		return fmt.Errorf("embed content: %w: %w", similarity.ErrUnauthorized, err)
	case apiErr.Code == http.StatusServiceUnavailable:
		return fmt.Errorf("embed content: %w: %w", similarity.ErrColdStart, err)
	default:
		return fmt.Errorf("embed content: %w", err)
	}
}

// invalidKey reports a rejected API key. Gemini answers it with 400
// INVALID_ARGUMENT and reason API_KEY_INVALID rather than 401.
func invalidKey(apiErr genai.APIError) bool {
	if apiErr.Code != http.StatusBadRequest || apiErr.Status != "INVALID_ARGUMENT" {
		return false
	}
	if strings.Contains(strings.ToLower(apiErr.Message), "api key not valid") {
		return true
	}
	for _, detail := range apiErr.Details {
		if reason, _ := detail["reason"].(string); reason == "API_KEY_INVALID" {
			return true
		}
	}
	return false
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}

	return genai.APIError{}, false
}

func textContent(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

var _ similarity.Backend = (*Backend)(nil)
