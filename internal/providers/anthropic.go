package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Icannotcodelol/onnyx/internal/harness"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

const anthropicFallback = `export function render(canvas) {
  const ctx = canvas.getContext('2d');
  const gradient = ctx.createLinearGradient(0, 0, canvas.width, canvas.height);
  gradient.addColorStop(0, '#3c4fff');
  gradient.addColorStop(1, '#0e165f');
  let t = 0;
  function loop() {
    t += 0.015;
    ctx.fillStyle = gradient;
    ctx.fillRect(0, 0, canvas.width, canvas.height);
    for (let i = 0; i < 40; i++) {
      const angle = (i / 40) * Math.PI * 2 + t;
      const radius = 80 + Math.sin(t * 3 + i) * 20;
      const x = canvas.width / 2 + Math.cos(angle) * radius;
      const y = canvas.height / 2 + Math.sin(angle) * radius;
      ctx.fillStyle = 'rgba(197,207,255,0.6)';
      ctx.beginPath();
      ctx.arc(x, y, 6, 0, Math.PI * 2);
      ctx.fill();
    }
    requestAnimationFrame(loop);
  }
  loop();
}`

type anthropicProvider struct {
	apiKey string
	client *http.Client
}

func (p *anthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system"`
	Messages    []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *anthropicProvider) Call(ctx context.Context, task types.TaskSpec, systemPrompt string) (*Result, error) {
	if p.apiKey == "" {
		return &Result{Code: anthropicFallback}, nil
	}

	body := anthropicRequest{
		Model:       "claude-3-5-sonnet-latest",
		MaxTokens:   2500,
		Temperature: 0.7,
		System:      systemPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: harness.BuildModelPrompt(task)},
		},
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
	var parsed anthropicResponse
	if err := postChat(ctx, p.client, p.Name(), anthropicURL, headers, body, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return nil, &CallError{Provider: p.Name(), Message: "returned no content"}
	}
	return &Result{
		Code:   strings.TrimSpace(parsed.Content[0].Text),
		Tokens: parsed.Usage.OutputTokens,
	}, nil
}
