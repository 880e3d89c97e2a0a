package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client calls a local Ollama-compatible embedding endpoint.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	limiter *RateLimiter
}

func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Model() string { return c.model }

// SetMaxRequestsPerSecond throttles embedding calls. Zero or negative
// leaves the client unthrottled.
func (c *Client) SetMaxRequestsPerSecond(rps int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = NewRateLimiter(rps)
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		c.limiter.WaitTurn()
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, eris.Wrap(err, "encode embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "build embedding request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "embedding request model=%s", c.model)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read embedding response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("embedding endpoint returned %d: %s", resp.StatusCode, truncate(raw, 200)))
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, eris.Wrap(err, "decode embedding response")
	}
	if decoded.Error != "" {
		return nil, eris.New("embedding endpoint error: " + decoded.Error)
	}
	if len(decoded.Embedding) == 0 {
		return nil, eris.New("embedding endpoint returned an empty vector")
	}
	return decoded.Embedding, nil
}

// Ping verifies the model is loadable before the catalog index is built.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Embed(ctx, "ping")
	return err
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
