package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Icannotcodelol/onnyx/internal/harness"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

const openAIFallback = `export function render(canvas, input) {
  const ctx = canvas.getContext('2d');
  let t = 0;
  function frame() {
    t += 0.02;
    const w = canvas.width;
    const h = canvas.height;
    ctx.fillStyle = 'rgba(12,18,64,0.9)';
    ctx.fillRect(0,0,w,h);
    for (let i=0;i<100;i++) {
      const x = (Math.sin(t + i)*0.5+0.5)*w;
      const y = (Math.cos(t*0.8 + i)*0.5+0.5)*h;
      const size = 4 + Math.sin(t+i)*3;
      ctx.fillStyle = 'rgba(60,79,255,0.6)';
      ctx.beginPath();
      ctx.arc(x, y, size, 0, Math.PI*2);
      ctx.fill();
    }
    requestAnimationFrame(frame);
  }
  frame();
}`

type openAIProvider struct {
	apiKey string
	client *http.Client
}

func (p *openAIProvider) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens  int `json:"total_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *openAIProvider) Call(ctx context.Context, task types.TaskSpec, systemPrompt string) (*Result, error) {
	if p.apiKey == "" {
		return &Result{Code: openAIFallback}, nil
	}

	body := chatRequest{
		Model:       "gpt-4o",
		Temperature: 0.8,
		TopP:        0.95,
		MaxTokens:   4000,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: harness.BuildModelPrompt(task)},
		},
	}

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	var parsed chatResponse
	if err := postChat(ctx, p.client, p.Name(), openAIURL, headers, body, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, &CallError{Provider: p.Name(), Message: "returned no content"}
	}
	return &Result{
		Code:   strings.TrimSpace(parsed.Choices[0].Message.Content),
		Tokens: parsed.Usage.TotalTokens,
	}, nil
}

// postChat issues one JSON POST and decodes the response. Shared by
// the OpenAI-compatible chat adapters.
func postChat(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &CallError{Provider: provider, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &CallError{Provider: provider, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &CallError{Provider: provider, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &CallError{Provider: provider, Message: string(text)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CallError{Provider: provider, Message: "failed to decode response", Cause: err}
	}
	return nil
}
