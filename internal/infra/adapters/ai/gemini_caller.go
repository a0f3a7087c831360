// File: internal/infra/adapters/ai/gemini_caller.go
package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"video-cm-analysis/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*GeminiCaller)(nil)

// GeminiCaller issues single-shot generation requests against the Gemini API.
// A fresh client is built per call because the dispatcher rotates API keys
// between attempts; client construction is cheap relative to generation.
type GeminiCaller struct{}

func NewGeminiCaller() *GeminiCaller { return &GeminiCaller{} }

func (g *GeminiCaller) Generate(ctx context.Context, apiKey, modelID, prompt string) (string, error) {
	if apiKey == "" {
		return "", &adapter.CallError{Kind: adapter.CallErrorFatal, Err: errors.New("gemini: empty api key")}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", classify(err)
	}

	resp, err := client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), nil)
	if err != nil {
		return "", classify(err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	if text == "" {
		return "", &adapter.CallError{Kind: adapter.CallErrorFatal, Err: errors.New("gemini: empty candidate text")}
	}
	return text, nil
}

// classify tags a provider error with its retry class at this boundary so
// the dispatcher never has to inspect error strings itself.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
			return &adapter.CallError{Kind: adapter.CallErrorRateLimited, Err: err}
		}
		return &adapter.CallError{Kind: adapter.CallErrorFatal, Err: err}
	}
	// Transport-level throttling sometimes surfaces without a typed API
	// error; keep the original signature match as a fallback.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate") || strings.Contains(msg, "resource_exhausted") {
		return &adapter.CallError{Kind: adapter.CallErrorRateLimited, Err: err}
	}
	return &adapter.CallError{Kind: adapter.CallErrorFatal, Err: err}
}
