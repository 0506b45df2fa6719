// Package embedclient calls the embedding provider's HTTP API (spec
// §6's OPENAI_EMBEDDING_ENDPOINT collaborator) to turn FEN strings into
// vectors, retrying transient failures (429, 5xx, connection errors)
// with exponential backoff.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hendrikreh/chessmate/internal/errs"
)

// Client calls an OpenAI-compatible embeddings endpoint.
type Client struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	maxRetries   uint64
	baseDelay    time.Duration
}

// New builds a Client against endpoint (OPENAI_EMBEDDING_ENDPOINT) using
// apiKey (OPENAI_API_KEY) for bearer auth. maxRetries and baseDelay come
// from OPENAI_RETRY_MAX_ATTEMPTS/OPENAI_RETRY_BASE_DELAY_MS (spec §6).
func New(endpoint, apiKey string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: uint64(maxRetries),
		baseDelay:  baseDelay,
	}
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed requests one vector per FEN in fens, preserving order. Retries on
// 429 and 5xx responses and on connection errors, up to maxRetries, with
// exponential backoff seeded at baseDelay (spec §6/§7).
func (c *Client) Embed(ctx context.Context, fens []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embedRequest{Input: fens, Model: "text-embedding-3-small"})
	if err != nil {
		return nil, errs.Transport("encoding embed request: "+err.Error(), false, err)
	}

	var vectors [][]float32
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return backoff.Permanent(errs.Transport("building embed request: "+err.Error(), false, err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errs.Transport(errs.Sanitize(err.Error()), true, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			var parsed embedResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return backoff.Permanent(errs.Transport("decoding embed response: "+err.Error(), false, err))
			}
			out := make([][]float32, len(fens))
			for _, d := range parsed.Data {
				if d.Index >= 0 && d.Index < len(out) {
					out[d.Index] = d.Embedding
				}
			}
			vectors = out
			return nil
		}

		body, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		transportErr := errs.Transport(fmt.Sprintf("embedding request failed: %d: %s", resp.StatusCode, string(body)), retryable, nil)
		if !retryable {
			return backoff.Permanent(transportErr)
		}
		return transportErr
	}, policy)

	if err != nil {
		return nil, err
	}
	return vectors, nil
}
