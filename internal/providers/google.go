package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Icannotcodelol/onnyx/internal/harness"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

const googleModel = "gemini-2.0-flash-exp"

const googleFallback = `export function render(canvas) {
  const ctx = canvas.getContext('2d');
  let t = 0;
  function frame() {
    t += 0.016;
    ctx.fillStyle = '#050a24';
    ctx.fillRect(0, 0, canvas.width, canvas.height);
    for (let i = 0; i < 120; i++) {
      const angle = (i / 120) * Math.PI * 2 + t;
      const radius = 120 + Math.sin(t * 4 + i) * 40;
      const x = canvas.width / 2 + Math.cos(angle) * radius;
      const y = canvas.height / 2 + Math.sin(angle) * radius;
      ctx.fillStyle = 'rgba(108,125,255,0.5)';
      ctx.fillRect(x, y, 4, 4);
    }
    requestAnimationFrame(frame);
  }
  frame();
}`

type googleProvider struct {
	apiKey string
}

func (p *googleProvider) Name() string { return "google" }

func (p *googleProvider) Call(ctx context.Context, task types.TaskSpec, systemPrompt string) (*Result, error) {
	if p.apiKey == "" {
		return &Result{Code: googleFallback}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, &CallError{Provider: p.Name(), Message: "failed to create client", Cause: err}
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(googleModel)
	model.SetTemperature(0.8)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(4000)

	prompt := fmt.Sprintf("%s\n\n%s", systemPrompt, harness.BuildModelPrompt(task))
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &CallError{Provider: p.Name(), Message: "request failed", Cause: err}
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, &CallError{Provider: p.Name(), Message: "returned no content", Cause: err}
	}
	return &Result{Code: strings.TrimSpace(text)}, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
