package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cognicore/cogdist/internal/logging"
)

// HTTPEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type HTTPEmbedder struct {
	endpoint  string
	apiKey    string
	model     string
	batchSize int
	client    *http.Client
	limiter   *rate.Limiter
	backoffs  []time.Duration

	mu  sync.Mutex
	dim int
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewHTTPEmbedder builds a client from cfg. Endpoint is required; a base
// URL without a path gets /v1/embeddings appended.
func NewHTTPEmbedder(cfg Config) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("embedding endpoint is required for the openai provider")
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.HasSuffix(endpoint, "/embeddings") {
		endpoint += "/v1/embeddings"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &HTTPEmbedder{
		endpoint:  endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dim:       cfg.Dimension,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, 1),
		backoffs:  []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
	}, nil
}

// Dimension returns the configured dimension, or the one observed on the
// first response when none was configured.
func (e *HTTPEmbedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

func (e *HTTPEmbedder) Model() string { return e.model }

// EmbedBatch splits texts into batches and places vectors by the index the
// server reports.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		chunk := texts[start:end]

		resp, err := e.post(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed: batch starting at %d: %w", start, err)
		}
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(chunk) {
				return nil, fmt.Errorf("embed: out-of-range index %d for batch of %d", item.Index, len(chunk))
			}
			if err := e.checkDimension(len(item.Embedding)); err != nil {
				return nil, err
			}
			out[start+item.Index] = item.Embedding
		}
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embed: missing embedding for index %d", i)
		}
	}
	return out, nil
}

func (e *HTTPEmbedder) checkDimension(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim == 0 {
		e.dim = n
	}
	if n != e.dim {
		return fmt.Errorf("embed: got dimension %d, want %d", n, e.dim)
	}
	return nil
}

// post sends one request, retrying on 429, 5xx and unparseable bodies.
func (e *HTTPEmbedder) post(ctx context.Context, input []string) (*embeddingResponse, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(e.backoffs); attempt++ {
		if attempt > 0 {
			delay := e.backoffs[attempt-1]
			var re *retryAfterError
			if errors.As(lastErr, &re) && re.delay > 0 {
				delay = re.delay
			}
			logging.Debug("retrying embedding request", "attempt", attempt, "delay", delay, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, retry, err := e.do(ctx, body)
		if err == nil {
			return resp, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted: %w", lastErr)
}

type retryAfterError struct {
	status int
	delay  time.Duration
	body   string
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func (e *HTTPEmbedder) do(ctx context.Context, body []byte) (*embeddingResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	resp.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var out embeddingResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, true, fmt.Errorf("parse response: %w", err)
		}
		return &out, false, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		re := &retryAfterError{status: resp.StatusCode, body: string(data)}
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			re.delay = min(time.Duration(s)*time.Second, 30*time.Second)
		}
		return nil, true, re
	}
	return nil, false, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
}
