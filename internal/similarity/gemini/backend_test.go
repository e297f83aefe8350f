package gemini

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/resume-screener/internal/similarity"
)

type fakeEmbedder struct {
	resp *genai.EmbedContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.EmbedContentConfig
}

func (f *fakeEmbedder) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func embeddings(vectors ...[]float32) *genai.EmbedContentResponse {
	resp := &genai.EmbedContentResponse{}
	for _, v := range vectors {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: v})
	}
	return resp
}

func TestSimilarityComputesCosine(t *testing.T) {
	t.Parallel()

	fake := &fakeEmbedder{resp: embeddings([]float32{1, 0}, []float32{1, 0}, []float32{0, 1})}
	backend := newBackend(fake, nil, "")

	scores, err := backend.Similarity(context.Background(), "source", []string{"same", "orthogonal"})
	if err != nil {
		t.Fatalf("Similarity returned error: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %v", scores)
	}
	if math.Abs(scores[0]-1) > 1e-9 || scores[1] != 0 {
		t.Fatalf("unexpected scores %v", scores)
	}

	if fake.model != defaultModel {
		t.Fatalf("expected default model, got %q", fake.model)
	}
	if fake.config == nil || fake.config.TaskType != taskType {
		t.Fatalf("expected task type %s, got %+v", taskType, fake.config)
	}
	if len(fake.contents) != 3 || fake.contents[0].Parts[0].Text != "source" {
		t.Fatalf("unexpected contents sent")
	}
}

func TestSimilarityMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]*genai.EmbedContentResponse{
		"nil response":    nil,
		"missing vectors": embeddings([]float32{1, 0}),
		"empty embedding": embeddings([]float32{1, 0}, []float32{}),
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			backend := newBackend(&fakeEmbedder{resp: resp}, nil, "")
			_, err := backend.Similarity(context.Background(), "a", []string{"b"})
			if !errors.Is(err, similarity.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestSimilarityClassifiesAPIErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want similarity.Outcome
	}{
		{name: "unauthorized", err: genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED"}, want: similarity.OutcomeFatal},
		{name: "forbidden", err: genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"}, want: similarity.OutcomeFatal},
		{name: "invalid key message", err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key."}, want: similarity.OutcomeFatal},
		{name: "invalid key reason", err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Details: []map[string]any{{"reason": "API_KEY_INVALID"}}}, want: similarity.OutcomeFatal},
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "text is too long"}, want: similarity.OutcomeRetryable},
		{name: "unavailable", err: genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}, want: similarity.OutcomeColdStart},
		{name: "internal", err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}, want: similarity.OutcomeRetryable},
		{name: "network", err: errors.New("connection reset"), want: similarity.OutcomeRetryable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			backend := newBackend(&fakeEmbedder{err: tc.err}, nil, "custom-model")
			_, err := backend.Similarity(context.Background(), "a", []string{"b"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := similarity.Classify(err); got != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, got, err)
			}
		})
	}
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil, "  ", "")
	if !errors.Is(err, similarity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
