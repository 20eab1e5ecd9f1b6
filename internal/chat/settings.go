package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	defaultModel       = "openai/gpt-4o"
	defaultTemperature = 0.7
)

// Settings are the per-profile model parameters. The stored API key is
// never returned; callers only learn whether one exists.
type Settings struct {
	Model       *string  `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"maxTokens"`
	HasAPIKey   bool     `json:"hasApiKey"`
}

// GetSettings returns the profile's model settings with the key masked.
func GetSettings(ctx context.Context, profileID string) (*Settings, error) {
	var (
		s           Settings
		key, model  sql.NullString
		temperature sql.NullFloat64
		maxTokens   sql.NullInt64
	)
	err := db.QueryRowContext(ctx,
		`SELECT openrouter_api_key, openrouter_model, temperature, max_tokens
		 FROM ai_settings WHERE profile_id = ?`, profileID,
	).Scan(&key, &model, &temperature, &maxTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up ai settings: %w", err)
	}
	s.HasAPIKey = key.Valid && strings.TrimSpace(key.String) != ""
	if model.Valid {
		s.Model = &model.String
	}
	if temperature.Valid {
		s.Temperature = &temperature.Float64
	}
	if maxTokens.Valid {
		n := int(maxTokens.Int64)
		s.MaxTokens = &n
	}
	return &s, nil
}

// SettingsPatch carries the updatable model settings. The API key is
// only touched when APIKeySet is true; nil then clears it.
type SettingsPatch struct {
	APIKey      *string
	APIKeySet   bool
	Model       *string
	ModelSet    bool
	Temperature *float64
	MaxTokens   *int
	MaxTokSet   bool
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 2 {
		return 2
	}
	return t
}

// PutSettings upserts the profile's model settings and returns the
// masked view.
func PutSettings(ctx context.Context, profileID string, patch SettingsPatch) (*Settings, error) {
	// Ensure the row exists so the per-field updates below apply cleanly.
	if _, err := db.ExecContext(ctx,
		`INSERT INTO ai_settings (profile_id) VALUES (?)
		 ON CONFLICT(profile_id) DO NOTHING`, profileID); err != nil {
		return nil, fmt.Errorf("creating ai settings row: %w", err)
	}

	updates := []string{"updated_at = datetime('now')"}
	args := []any{}
	if patch.APIKeySet {
		updates = append(updates, "openrouter_api_key = ?")
		if patch.APIKey != nil && strings.TrimSpace(*patch.APIKey) != "" {
			args = append(args, strings.TrimSpace(*patch.APIKey))
		} else {
			args = append(args, nil)
		}
	}
	if patch.ModelSet {
		updates = append(updates, "openrouter_model = ?")
		if patch.Model != nil && strings.TrimSpace(*patch.Model) != "" {
			args = append(args, strings.TrimSpace(*patch.Model))
		} else {
			args = append(args, nil)
		}
	}
	if patch.Temperature != nil {
		updates = append(updates, "temperature = ?")
		args = append(args, clampTemperature(*patch.Temperature))
	}
	if patch.MaxTokSet {
		updates = append(updates, "max_tokens = ?")
		if patch.MaxTokens != nil && *patch.MaxTokens > 0 {
			args = append(args, *patch.MaxTokens)
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, profileID)
	if _, err := db.ExecContext(ctx,
		"UPDATE ai_settings SET "+strings.Join(updates, ", ")+" WHERE profile_id = ?",
		args...); err != nil {
		return nil, fmt.Errorf("updating ai settings: %w", err)
	}
	return GetSettings(ctx, profileID)
}

// effectiveSettings resolves the concrete values used for an upstream
// call: the profile's key when set, else the shared fallback key from
// the OPENROUTER_API_KEY environment variable.
type effectiveSettings struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   *int
}

func resolveSettings(ctx context.Context, profileID string) (*effectiveSettings, error) {
	eff := effectiveSettings{model: defaultModel, temperature: defaultTemperature}

	var (
		key, model  sql.NullString
		temperature sql.NullFloat64
		maxTokens   sql.NullInt64
	)
	err := db.QueryRowContext(ctx,
		`SELECT openrouter_api_key, openrouter_model, temperature, max_tokens
		 FROM ai_settings WHERE profile_id = ?`, profileID,
	).Scan(&key, &model, &temperature, &maxTokens)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up ai settings: %w", err)
	}
	if err == nil {
		if key.Valid && strings.TrimSpace(key.String) != "" {
			eff.apiKey = strings.TrimSpace(key.String)
		}
		if model.Valid && strings.TrimSpace(model.String) != "" {
			eff.model = strings.TrimSpace(model.String)
		}
		if temperature.Valid {
			eff.temperature = clampTemperature(temperature.Float64)
		}
		if maxTokens.Valid && maxTokens.Int64 > 0 {
			n := int(maxTokens.Int64)
			eff.maxTokens = &n
		}
	}
	if eff.apiKey == "" {
		eff.apiKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	}
	return &eff, nil
}
