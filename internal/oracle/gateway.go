package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/config"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GatewayClient talks to an OpenAI-compatible chat-completions gateway.
type GatewayClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.Config) *GatewayClient {
	// Zero timeout means the request runs until the gateway or the caller's context gives up.
	return &GatewayClient{
		apiKey:  strings.TrimSpace(cfg.AIAPIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.AIBaseURL), "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.AITimeoutSeconds) * time.Second,
		},
	}
}

func (c *GatewayClient) Complete(ctx context.Context, req analysis.Completion) (string, error) {
	if c.apiKey == "" {
		return "", &analysis.Error{Kind: analysis.KindConfig, Message: "AI_GATEWAY_API_KEY is not configured"}
	}
	if c.baseURL == "" {
		return "", &analysis.Error{Kind: analysis.KindConfig, Message: "AI_GATEWAY_BASE_URL is not configured"}
	}

	bodyRaw, err := json.Marshal(chatCompletionRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyRaw))
	if err != nil {
		return "", err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &analysis.StatusError{
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(string(responseBody)),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", &analysis.Error{Kind: analysis.KindUpstream, Message: "AI gateway returned a malformed body", Body: string(responseBody), Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &analysis.Error{Kind: analysis.KindUpstream, Message: "no content in AI response", Body: string(responseBody)}
	}
	answer := extractContent(parsed.Choices[0].Message.Content)
	if answer == "" {
		return "", &analysis.Error{Kind: analysis.KindUpstream, Message: "no content in AI response", Body: string(responseBody)}
	}
	return answer, nil
}

// extractContent accepts both a plain string and a list of typed text parts.
func extractContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		partType := strings.ToLower(strings.TrimSpace(part.Type))
		if partType != "" && partType != "text" && partType != "output_text" {
			continue
		}
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}
