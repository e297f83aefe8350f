package huggingface

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/similarity"
)

const (
	// DefaultURL is the hosted sentence-similarity pipeline of all-MiniLM-L6-v2.
	DefaultURL = "https://api-inference.huggingface.co/models/sentence-transformers/all-MiniLM-L6-v2"
	userAgent  = "spigell/resume-screener"

	contentType     = "application/json"
	contentEncoding = "gzip"

	responsePreviewLimit = 200
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, url, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url = strings.TrimSpace(url); url == "" {
		url = DefaultURL
	}

	return &Client{
		token:  strings.TrimSpace(token),
		APIURL: url,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) Name() string {
	return "huggingface"
}

// Model returns the model path of the configured URL.
func (c *Client) Model() string {
	if _, model, ok := strings.Cut(c.APIURL, "/models/"); ok {
		return model
	}
	return c.APIURL
}

type request struct {
	Inputs inputs `json:"inputs"`
}

type inputs struct {
	SourceSentence string   `json:"source_sentence"`
	Sentences      []string `json:"sentences"`
}

// apiError is the object the inference API answers with instead of a score list.
type apiError struct {
	Error         string   `mapstructure:"error"`
	EstimatedTime float64  `mapstructure:"estimated_time"`
	Warnings      []string `mapstructure:"warnings"`
}

// Similarity implements similarity.Backend.
func (c *Client) Similarity(ctx context.Context, source string, candidates []string) ([]float64, error) {
	if c.token == "" {
		return nil, fmt.Errorf("huggingface token is empty: %w", similarity.ErrUnauthorized)
	}

	payload, err := json.Marshal(request{Inputs: inputs{SourceSentence: source, Sentences: candidates}})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("got response from huggingface",
		zap.Int("status", resp.StatusCode),
		zap.String("body", logger.TruncateForLog(string(data), responsePreviewLimit)),
	)

	switch resp.StatusCode {
	case http.StatusOK:
		return parseScores(data, len(candidates))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("bad status: %s: %w", resp.Status, similarity.ErrUnauthorized)
	case http.StatusNotFound:
		return nil, fmt.Errorf("bad status: %s: %s: %w", resp.Status, c.APIURL, similarity.ErrModelNotFound)
	}

	if apiErr, ok := decodeError(data); ok && apiErr.loading() {
		if len(apiErr.Warnings) > 0 {
			c.logger.Warn("huggingface model is loading", zap.Strings("warnings", apiErr.Warnings))
		}
		return nil, fmt.Errorf("%s (estimated %.0fs): %w", apiErr.Error, apiErr.EstimatedTime, similarity.ErrColdStart)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		c.logger.Warn("huggingface rejected the request, check similarity.huggingface.url",
			zap.Int("status", resp.StatusCode),
			zap.String("url", c.APIURL),
		)
	}

	return nil, fmt.Errorf("bad status: %s", resp.Status)
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

// parseScores accepts a JSON number list. A 200 carrying an error object is
// still classified by the error it reports.
func parseScores(data []byte, want int) ([]float64, error) {
	var scores []float64
	if err := json.Unmarshal(data, &scores); err != nil {
		if apiErr, ok := decodeError(data); ok {
			if apiErr.loading() {
				return nil, fmt.Errorf("%s: %w", apiErr.Error, similarity.ErrColdStart)
			}
			return nil, fmt.Errorf("%w: %s", similarity.ErrMalformedResponse, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: %v", similarity.ErrMalformedResponse, err)
	}

	if len(scores) != want {
		return nil, fmt.Errorf("%w: expected %d scores, got %d", similarity.ErrMalformedResponse, want, len(scores))
	}

	return scores, nil
}

func decodeError(data []byte) (*apiError, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}

	var out apiError
	if err := mapstructure.WeakDecode(raw, &out); err != nil {
		return nil, false
	}
	if out.Error == "" {
		return nil, false
	}

	return &out, true
}

func (e *apiError) loading() bool {
	return e.EstimatedTime > 0 || strings.Contains(strings.ToLower(e.Error), "loading")
}

var _ similarity.Backend = (*Client)(nil)
