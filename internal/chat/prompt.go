package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"lifeone/internal/coach"
	"lifeone/internal/food"
)

const (
	promptHistoryEntries = 80
	handoffSheetBudget   = 25000
	contextFileBudget    = 8000
	contextFilesBudget   = 30000
	foodsSummaryLimit    = 200
)

// BuildPrompt composes the system prompt from the coaching
// configuration and the assembled training context. The output is
// deterministic for identical inputs; blocks with no source data are
// omitted without stray separators.
func BuildPrompt(ctx context.Context, tc *Context, profileID string) (string, error) {
	settings, err := coach.GetSettings(ctx, profileID)
	if err != nil {
		return "", err
	}

	blocks := []string{}

	// Persona or the generic identity.
	personaBlock := "You are a knowledgeable fitness and nutrition coach."
	if settings.CoachPersonaID != nil {
		persona, err := coach.GetPersona(ctx, profileID, *settings.CoachPersonaID)
		if err == nil {
			var b strings.Builder
			b.WriteString("You are " + persona.Name + ". Respond as this coach.")
			if persona.PersonalitySummary != nil && strings.TrimSpace(*persona.PersonalitySummary) != "" {
				b.WriteString("\n\nPersonality: " + strings.TrimSpace(*persona.PersonalitySummary))
			}
			if persona.MethodsNotes != nil && strings.TrimSpace(*persona.MethodsNotes) != "" {
				b.WriteString("\n\nCoaching methods: " + strings.TrimSpace(*persona.MethodsNotes))
			}
			personaBlock = b.String()
		}
	}
	blocks = append(blocks, personaBlock)

	blocks = append(blocks, "You are coaching "+tc.ProfileName+".")

	if len(tc.Programs) > 0 {
		var b strings.Builder
		b.WriteString("Current training programs:")
		for _, p := range tc.Programs {
			b.WriteString("\n- " + p.Name)
			for _, s := range p.Sections {
				b.WriteString("\n  - " + s.Name)
				if s.Description != "" {
					b.WriteString(": " + s.Description)
				}
				if len(s.Days) > 0 {
					b.WriteString(" (days: " + strings.Join(s.Days, ", ") + ")")
				}
				if len(s.Items) > 0 {
					b.WriteString(" [" + strings.Join(s.Items, ", ") + "]")
				}
			}
		}
		blocks = append(blocks, b.String())
	}

	if len(tc.History) > 0 {
		entries := tc.History
		if len(entries) > promptHistoryEntries {
			entries = entries[:promptHistoryEntries]
		}
		var b strings.Builder
		b.WriteString("Recent training history:")
		for _, e := range entries {
			b.WriteString("\n- " + e.Date + " " + e.ExerciseName)
			if len(e.Sets) > 0 {
				summaries := make([]string, 0, len(e.Sets))
				for _, s := range e.Sets {
					summaries = append(summaries, setSummary(s))
				}
				b.WriteString(": " + strings.Join(summaries, "; "))
			}
		}
		blocks = append(blocks, b.String())
	}

	if settings.PersonalityPresetID != nil {
		presets, err := coach.ListPresets(ctx)
		if err != nil {
			return "", err
		}
		for _, p := range presets {
			if p.ID == *settings.PersonalityPresetID && p.SystemInstruction != nil &&
				strings.TrimSpace(*p.SystemInstruction) != "" {
				blocks = append(blocks, strings.TrimSpace(*p.SystemInstruction))
				break
			}
		}
	}

	if settings.Sport != nil && *settings.Sport != "" && *settings.Sport != "general" {
		blocks = append(blocks, "Tailor all programming and advice to "+*settings.Sport+" athletes.")
	}

	sheet, err := coach.GetHandoffSheet(ctx, profileID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sheet) != "" {
		sheet = truncate(sheet, handoffSheetBudget)
		blocks = append(blocks, "Coach handoff sheet:\n"+sheet)
	}

	files, err := coach.ListContextFiles(ctx, profileID)
	if err != nil {
		return "", err
	}
	if len(files) > 0 {
		var b strings.Builder
		total := 0
		for _, f := range files {
			content := truncate(f.Content, contextFileBudget)
			if total+len(content) > contextFilesBudget {
				continue
			}
			total += len(content)
			b.WriteString("\n--- " + f.Name + " (" + f.SourceType + ") ---\n")
			b.WriteString(content)
		}
		if total > 0 {
			blocks = append(blocks, "Reference material:"+b.String())
		}
	}

	foods, err := food.PromptSummary(ctx, foodsSummaryLimit)
	if err != nil {
		return "", err
	}
	if foods != "" {
		blocks = append(blocks, "Food reference (per 100 g):\n"+foods)
	}

	blocks = append(blocks, "Answer as the coach, grounded in the athlete's data above.")

	return strings.Join(blocks, "\n\n"), nil
}

// truncate cuts s to at most max bytes, backing off so a multi-byte
// rune is never split at the cut point.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
