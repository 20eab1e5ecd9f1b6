package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
)

// HistoryHandler returns stored messages oldest-first. ?limit accepts
// 1..500 and defaults to 100.
func HistoryHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return apperr.Validationf("limit must be between 1 and 500")
		}
		limit = n
	}
	messages, err := History(c.Request().Context(), profileID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

// ContextHandler returns the assembled training context. ?windowDays
// widens or narrows the history filter; ?format=text returns the plain
// rendering.
func ContextHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	windowDays := 30
	if raw := c.QueryParam("windowDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return apperr.Validationf("windowDays must be a positive integer")
		}
		windowDays = n
	}
	tc, err := BuildContext(c.Request().Context(), profileID, windowDays)
	if err != nil {
		return err
	}
	if tc == nil {
		return apperr.NotFoundf("Profile not found")
	}
	if c.QueryParam("format") == "text" {
		return c.String(http.StatusOK, tc.RenderText())
	}
	return c.JSON(http.StatusOK, tc)
}

// SendMessage runs one chat exchange: build the system prompt, replay
// recent history, call the completion API and persist both turns.
func SendMessage(ctx context.Context, profileID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validationf("Message must not be empty")
	}

	eff, err := resolveSettings(ctx, profileID)
	if err != nil {
		return nil, err
	}

	tc, err := BuildContext(ctx, profileID, 30)
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, apperr.NotFoundf("Profile not found")
	}

	prompt, err := BuildPrompt(ctx, tc, profileID)
	if err != nil {
		return nil, err
	}

	history, err := History(ctx, profileID, historyLimit*2)
	if err != nil {
		return nil, err
	}

	messages := make([]apiMessage, 0, len(history)+2)
	messages = append(messages, apiMessage{Role: "system", Content: prompt})
	for _, m := range history {
		messages = append(messages, apiMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, apiMessage{Role: "user", Content: text})

	reply, err := complete(ctx, eff, messages)
	if err != nil {
		return nil, err
	}

	return saveExchange(ctx, profileID, text, reply)
}

type sendRequest struct {
	Message string `json:"message"`
	Text    string `json:"text"`
}

// SendMessageHandler accepts the user's message and returns the
// assistant reply with its persisted id.
func SendMessageHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	text := req.Message
	if strings.TrimSpace(text) == "" {
		text = req.Text
	}

	// The exchange should complete and persist even if the client
	// disconnects while the upstream call is in flight.
	assistant, err := SendMessage(context.WithoutCancel(c.Request().Context()), profileID, text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"id":      assistant.ID,
		"role":    assistant.Role,
		"message": assistant.Content,
	})
}

// GetAISettingsHandler returns the profile's model settings with the
// stored key masked to a boolean.
func GetAISettingsHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	settings, err := GetSettings(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

type aiSettingsRequest struct {
	APIKey      json.RawMessage `json:"apiKey"`
	Model       json.RawMessage `json:"model"`
	Temperature *float64        `json:"temperature"`
	MaxTokens   json.RawMessage `json:"maxTokens"`
}

func rawStringField(raw json.RawMessage, field string) (*string, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, apperr.Validationf("%s must be a string", field)
	}
	return &v, true, nil
}

// PutAISettingsHandler patches the model settings. The API key is only
// changed when the field is present in the body; null clears it.
func PutAISettingsHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req aiSettingsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}

	var patch SettingsPatch
	if key, set, err := rawStringField(req.APIKey, "apiKey"); err != nil {
		return err
	} else if set {
		patch.APIKey = key
		patch.APIKeySet = true
	}
	if model, set, err := rawStringField(req.Model, "model"); err != nil {
		return err
	} else if set {
		patch.Model = model
		patch.ModelSet = true
	}
	patch.Temperature = req.Temperature
	if len(req.MaxTokens) > 0 {
		patch.MaxTokSet = true
		if string(req.MaxTokens) != "null" {
			var n int
			if err := json.Unmarshal(req.MaxTokens, &n); err != nil {
				return apperr.Validationf("maxTokens must be an integer")
			}
			patch.MaxTokens = &n
		}
	}

	settings, err := PutSettings(c.Request().Context(), profileID, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}
