// Package vectorstore is a client for the vector store's upsert, search,
// and ensure-collection protocol (spec §4.9): a shared *http.Client,
// context-aware requests, and explicit status-code branches per call.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/hendrikreh/chessmate/internal/errs"
)

// Point is a single vector entry (spec §3).
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a Point returned from a search, with its similarity score.
type ScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// SearchRequest is the vector_search input (spec §4.9).
type SearchRequest struct {
	Vector  []float32
	Filters map[string]string
	Limit   int
}

// Hook is the test-hook seam from spec §4.9/§9: production code wires the
// HTTP Client; tests substitute an in-memory implementation without
// changing call sites.
type Hook interface {
	UpsertPoints(ctx context.Context, collection string, points []Point) error
	VectorSearch(ctx context.Context, collection string, req SearchRequest) ([]ScoredPoint, error)
}

// Client is the HTTP-backed Hook implementation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	maxRetries uint64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMaxRetries overrides the retry attempt ceiling for transient
// failures (default 5, per the same defaults the embedding client uses).
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient builds a vector store client against baseURL (QDRANT_URL,
// spec §6).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureCollection GETs the collection; on 404 it PUTs a create request
// with the fixed payload schema from spec §4.9.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	getResp, err := c.do(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return err
	}
	getResp.Body.Close()
	if getResp.StatusCode == http.StatusOK {
		return nil
	}
	if getResp.StatusCode != http.StatusNotFound {
		return errs.Transport(fmt.Sprintf("unexpected status checking collection: %d", getResp.StatusCode), false, nil)
	}

	body := map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": distance},
		"payload_schema": map[string]string{
			"game_id":      "int",
			"fen":          "keyword",
			"white":        "keyword",
			"black":        "keyword",
			"opening_slug": "keyword",
		},
	}
	resp, err := c.do(ctx, http.MethodPut, "/collections/"+name, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return errs.Transport(fmt.Sprintf("create collection failed: %d", resp.StatusCode), isRetryableStatus(resp.StatusCode), nil)
	}
}

// UpsertPoints POSTs points to /collections/{name}/points.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	body := map[string]any{"points": points}
	return backoff.Retry(func() error {
		resp, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		respBody, _ := io.ReadAll(resp.Body)
		transportErr := errs.Transport(fmt.Sprintf("upsert failed: %d: %s", resp.StatusCode, string(respBody)), isRetryableStatus(resp.StatusCode), nil)
		if !transportErr.Retryable {
			return backoff.Permanent(transportErr)
		}
		return transportErr
	}, c.backoffPolicy(ctx))
}

// VectorSearch POSTs req to /collections/{name}/points/search.
func (c *Client) VectorSearch(ctx context.Context, collection string, req SearchRequest) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       map[string]any{"name": "default", "vector": req.Vector},
		"with_payload": true,
		"limit":        req.Limit,
	}
	if len(req.Filters) > 0 {
		var must []map[string]any
		for k, v := range req.Filters {
			must = append(must, map[string]any{"key": k, "match": map[string]any{"value": v}})
		}
		body["filter"] = map[string]any{"must": must}
	} else {
		body["filter"] = nil
	}

	var out []ScoredPoint
	err := backoff.Retry(func() error {
		resp, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			transportErr := errs.Transport(fmt.Sprintf("search failed: %d: %s", resp.StatusCode, string(respBody)), isRetryableStatus(resp.StatusCode), nil)
			if !transportErr.Retryable {
				return backoff.Permanent(transportErr)
			}
			return transportErr
		}
		var parsed struct {
			Result []ScoredPoint `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(errs.Transport("decoding search response: "+err.Error(), false, err))
		}
		out = parsed.Result
		return nil
	}, c.backoffPolicy(ctx))
	return out, err
}

func (c *Client) backoffPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errs.Transport("encoding request body: "+err.Error(), false, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errs.Transport("building request: "+err.Error(), false, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Transport(errs.Sanitize(err.Error()), true, err)
	}
	return resp, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
