package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/config"
)

// GeminiClient calls the Gemini API directly instead of going through a gateway.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, cfg config.Config) (*GeminiClient, error) {
	return newGeminiClient(ctx, cfg.AIAPIKey, time.Duration(cfg.AITimeoutSeconds)*time.Second, "")
}

// newGeminiClient accepts a base URL override; empty keeps the public endpoint.
func newGeminiClient(ctx context.Context, apiKey string, timeout time.Duration, baseURL string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &analysis.Error{Kind: analysis.KindConfig, Message: "AI_GATEWAY_API_KEY is not configured"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      strings.TrimSpace(apiKey),
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req analysis.Completion) (string, error) {
	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	}

	res, err := c.client.Models.GenerateContent(ctx, geminiModelName(req.Model), genai.Text(req.User), cfg)
	if err != nil {
		// Code comes from the error body, not the HTTP status line.
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &analysis.StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", &analysis.Error{Kind: analysis.KindUpstream, Message: "no content in AI response"}
	}
	return text, nil
}

// geminiModelName drops the vendor prefix used by gateways ("google/gemini-2.5-flash").
func geminiModelName(model string) string {
	name := strings.TrimSpace(model)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "gemini-2.5-flash"
	}
	return name
}
