package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// EmbeddingClient calls the embedding gateway. Transient failures (network
// errors, timeouts, 5xx) are retried with exponential backoff; an empty or
// malformed vector in a 2xx response is a hard failure and is not retried.
type EmbeddingClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	maxRetries int
	log        *slog.Logger
}

type EmbeddingOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

func NewEmbeddingClient(opts EmbeddingOptions, log *slog.Logger) *EmbeddingClient {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	return &EmbeddingClient{
		httpClient: newHTTPClient(opts.Timeout),
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		dimension:  opts.Dimension,
		maxRetries: opts.MaxRetries,
		log:        log,
	}
}

// Dimension returns the configured embedding dimension.
func (c *EmbeddingClient) Dimension() int {
	return c.dimension
}

// Embed returns the embedding vector for the given text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		vec, retryable, err := c.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if !retryable || attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(math.Min(1000*math.Pow(2, float64(attempt-1)), 10000)) * time.Millisecond
		c.log.Warn("embedding attempt failed, retrying",
			"attempt", attempt, "max_attempts", c.maxRetries, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

// embedOnce performs a single gateway call. The second return reports
// whether the failure is transient and worth retrying.
func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float64, bool, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"input": text,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, false, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, false, fmt.Errorf("empty embedding in response")
	}
	vec := parsed.Data[0].Embedding
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, false, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), c.dimension)
	}
	return vec, false, nil
}
