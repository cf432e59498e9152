package renderer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// RenderError reports a renderer call failure.
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("renderer failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("renderer failed: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// RenderResult is a decoded renderer response.
type RenderResult struct {
	Harness   string
	Thumbnail []byte
	Width     int
	Height    int
}

// Client calls the renderer service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a renderer client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Render submits code for harness construction and thumbnail
// generation. Exactly one attempt; the dispatcher treats failure as
// terminal for the submission's artifact.
func (c *Client) Render(ctx context.Context, runtime types.Runtime, code string) (*RenderResult, error) {
	payload, err := json.Marshal(RenderRequest{Runtime: runtime, Code: code})
	if err != nil {
		return nil, &RenderError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, &RenderError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RenderError{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RenderError{Message: string(text)}
	}

	var parsed RenderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &RenderError{Message: "failed to decode response", Cause: err}
	}

	thumb, err := base64.StdEncoding.DecodeString(parsed.Thumbnail)
	if err != nil {
		return nil, &RenderError{Message: "failed to decode thumbnail", Cause: err}
	}

	return &RenderResult{
		Harness:   parsed.Harness,
		Thumbnail: thumb,
		Width:     parsed.Width,
		Height:    parsed.Height,
	}, nil
}
