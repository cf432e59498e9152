package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// roundTripFunc lets tests serve canned responses for the fixed
// provider endpoints without network access.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fakeClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body any) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func testTask() types.TaskSpec {
	return types.TaskSpec{
		Title:              "Sort Explorer",
		Summary:            "Animate an in-browser sorting visualizer.",
		Runtime:            types.RuntimeJSBrowser,
		Instructions:       "Render 64 bars and animate bubble sort.",
		AcceptanceCriteria: []string{"Bars animate smoothly"},
		Starter:            types.Starter{Language: "javascript", Code: "function render() {}"},
	}
}

func TestLoad_RegistryKeys(t *testing.T) {
	registry := Load(Config{})

	for _, name := range []string{"openai", "anthropic", "google", "deepseek"} {
		provider, ok := registry[name]
		require.True(t, ok, "missing provider %s", name)
		assert.Equal(t, name, provider.Name())
	}
}

func TestCall_OfflineFallbackWithoutKey(t *testing.T) {
	registry := Load(Config{})

	for name, provider := range registry {
		t.Run(name, func(t *testing.T) {
			result, err := provider.Call(context.Background(), testTask(), "system")
			require.NoError(t, err)
			assert.Contains(t, result.Code, "render")
			assert.Zero(t, result.Tokens)
		})
	}
}

func TestOpenAI_Success(t *testing.T) {
	client := fakeClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "Task: Sort Explorer")

		return jsonResponse(200, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "  function render() {}  "}}},
			"usage":   map[string]any{"total_tokens": 420},
		}), nil
	})

	provider := &openAIProvider{apiKey: "sk-test", client: client}
	result, err := provider.Call(context.Background(), testTask(), "system prompt")
	require.NoError(t, err)
	assert.Equal(t, "function render() {}", result.Code)
	assert.Equal(t, 420, result.Tokens)
}

func TestOpenAI_NonOKStatusIsHardFailure(t *testing.T) {
	client := fakeClient(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 429,
			Body:       io.NopCloser(strings.NewReader("rate limited")),
		}, nil
	})

	provider := &openAIProvider{apiKey: "sk-test", client: client}
	_, err := provider.Call(context.Background(), testTask(), "system")
	require.Error(t, err)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "openai", callErr.Provider)
	assert.Contains(t, callErr.Message, "rate limited")
}

func TestOpenAI_MissingContentIsHardFailure(t *testing.T) {
	client := fakeClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{"choices": []any{}}), nil
	})

	provider := &openAIProvider{apiKey: "sk-test", client: client}
	_, err := provider.Call(context.Background(), testTask(), "system")

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Contains(t, callErr.Message, "no content")
}

func TestAnthropic_Success(t *testing.T) {
	client := fakeClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "key-123", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-3-5-sonnet-latest", req.Model)
		assert.Equal(t, "system prompt", req.System)

		return jsonResponse(200, map[string]any{
			"content": []any{map[string]any{"text": "function render() {}"}},
			"usage":   map[string]any{"output_tokens": 99},
		}), nil
	})

	provider := &anthropicProvider{apiKey: "key-123", client: client}
	result, err := provider.Call(context.Background(), testTask(), "system prompt")
	require.NoError(t, err)
	assert.Equal(t, "function render() {}", result.Code)
	assert.Equal(t, 99, result.Tokens)
}

func TestDeepSeek_CompactPrompt(t *testing.T) {
	client := fakeClient(func(r *http.Request) (*http.Response, error) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-coder", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Limits: maxLines=250")

		return jsonResponse(200, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "function render() {}"}}},
			"usage":   map[string]any{"total_tokens": 77},
		}), nil
	})

	provider := &deepSeekProvider{apiKey: "ds-key", client: client}
	result, err := provider.Call(context.Background(), testTask(), "system")
	require.NoError(t, err)
	assert.Equal(t, 77, result.Tokens)
}
