package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"lifeone/internal/apperr"
)

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	// upstreamTimeout bounds the completion call; a timeout surfaces as
	// an upstream error and is not retried.
	upstreamTimeout = 60 * time.Second
)

var httpClient = &http.Client{Timeout: upstreamTimeout}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// completionURL is swapped in tests.
var completionURL = openRouterURL

// complete sends the conversation to the chat-completion endpoint and
// returns the assistant content. Authentication rejections are mapped
// to a guidance message telling the user to check their stored key.
func complete(ctx context.Context, eff *effectiveSettings, messages []apiMessage) (string, error) {
	if eff.apiKey == "" {
		return "", apperr.Upstreamf("No API key configured. Set one in your AI settings.")
	}

	body, err := json.Marshal(completionRequest{
		Model:       eff.model,
		Messages:    messages,
		Temperature: eff.temperature,
		MaxTokens:   eff.maxTokens,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "Failed to encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "Failed to build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+eff.apiKey)
	req.Header.Set("Referer", "https://lifeone.app")
	req.Header.Set("X-Title", "Life One")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "Chat service unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "Failed to read completion response", err)
	}

	var parsed completionResponse
	// A body that fails to parse is handled below by status code.
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Error != nil {
		if credentialRejected(resp.StatusCode, &parsed) {
			return "", apperr.Upstreamf("The AI service rejected the API key. Get a new key at openrouter.ai/keys and update your AI settings. Your Life One profile is not affected.")
		}
		msg := "The AI service returned an error"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = "AI service error: " + parsed.Error.Message
		}
		return "", apperr.Upstreamf("%s", msg)
	}

	if len(parsed.Choices) == 0 {
		return "", apperr.Upstreamf("The AI service returned an empty response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func credentialRejected(status int, parsed *completionResponse) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	if parsed.Error == nil {
		return false
	}
	if string(parsed.Error.Code) == "401" || string(parsed.Error.Code) == `"401"` {
		return true
	}
	msg := strings.ToLower(parsed.Error.Message)
	return strings.Contains(msg, "user") && strings.Contains(msg, "not found")
}
