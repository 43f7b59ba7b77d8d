// Package ollama talks to a local Ollama server's generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
)

const (
	defaultTimeout = 2 * time.Minute
	maxErrorBody   = 512
)

type Options struct {
	URL         string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	url         string
	model       string
	temperature float64
	http        *http.Client
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// New returns nil when opts.URL is empty, which callers treat as "disabled".
func New(opts Options) *Client {
	if strings.TrimSpace(opts.URL) == "" {
		return nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		url:         strings.TrimRight(opts.URL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		http:        &http.Client{Timeout: opts.Timeout},
	}
}

// Generate sends prompt to /api/generate in JSON mode and returns the model's
// raw response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: generateOptions{Temperature: c.temperature},
	})
	if err != nil {
		return "", errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "ollama request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", errors.Wrapf(errcodes.UpstreamError("Ollama"), "status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode ollama response")
	}
	if out.Error != "" {
		return "", errors.Errorf("ollama: %s", out.Error)
	}
	return out.Response, nil
}
