package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

const deepSeekURL = "https://api.deepseek.com/v1/chat/completions"

const deepSeekFallback = `export function render(canvas) {
  const ctx = canvas.getContext('2d');
  const dots = new Array(80).fill(0).map((_, i) => ({
    angle: (i / 80) * Math.PI * 2,
    radius: 50 + i,
    speed: 0.005 + (i % 5) * 0.001
  }));
  function frame(time) {
    ctx.fillStyle = '#050a24';
    ctx.fillRect(0, 0, canvas.width, canvas.height);
    dots.forEach((dot, i) => {
      const r = dot.radius + Math.sin(time * dot.speed) * 12;
      const x = canvas.width / 2 + Math.cos(dot.angle + time * dot.speed) * r;
      const y = canvas.height / 2 + Math.sin(dot.angle + time * dot.speed) * r;
      ctx.fillStyle = 'rgba(108,125,255,0.7)';
      ctx.beginPath();
      ctx.arc(x, y, 4, 0, Math.PI * 2);
      ctx.fill();
    });
    requestAnimationFrame(frame);
  }
  requestAnimationFrame(frame);
}`

type deepSeekProvider struct {
	apiKey string
	client *http.Client
}

func (p *deepSeekProvider) Name() string { return "deepseek" }

func (p *deepSeekProvider) Call(ctx context.Context, task types.TaskSpec, systemPrompt string) (*Result, error) {
	if p.apiKey == "" {
		return &Result{Code: deepSeekFallback}, nil
	}

	// DeepSeek gets a compact prompt with explicit execution limits.
	userPrompt := fmt.Sprintf(
		"Task: %s\nDescription: %s\nAcceptance: %s\nLimits: maxLines=250, initMs=1000, runMs=15000\nReturn only code.",
		task.Title, task.Summary, strings.Join(task.AcceptanceCriteria, "; "),
	)

	body := chatRequest{
		Model:       "deepseek-coder",
		Temperature: 0.2,
		TopP:        0.9,
		MaxTokens:   1200,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	var parsed chatResponse
	if err := postChat(ctx, p.client, p.Name(), deepSeekURL, headers, body, &parsed); err != nil {
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
