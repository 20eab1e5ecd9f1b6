package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lifeone/internal/workout"
)

const (
	// recentHistoryRows bounds how many log entries are loaded before
	// the date-window filter is applied.
	recentHistoryRows = 500
	// renderHistoryEntries bounds the text rendering of history.
	renderHistoryEntries = 100
)

// ContextSection is a program section as exposed to prompt consumers.
type ContextSection struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Days        []string `json:"days"`
	Items       []string `json:"items"`
}

// ContextProgram is a training program as exposed to prompt consumers.
type ContextProgram struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Sections []ContextSection `json:"sections"`
}

// Context is the training snapshot assembled for prompt construction.
type Context struct {
	ProfileID   string           `json:"profileId"`
	ProfileName string           `json:"profileName"`
	Programs    []ContextProgram `json:"programs"`
	History     []workout.Entry  `json:"history"`
}

// BuildContext assembles the profile's programs and recent exercise
// history. A window of 365 days or more disables the date filter. Nil
// is returned (without error) when the profile does not exist.
func BuildContext(ctx context.Context, profileID string, windowDays int) (*Context, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM profiles WHERE id = ?`, profileID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up profile: %w", err)
	}

	out := Context{ProfileID: profileID, ProfileName: name, Programs: []ContextProgram{}, History: []workout.Entry{}}

	blueprints, err := programs.List(profileID)
	if err != nil {
		return nil, err
	}
	for _, b := range blueprints {
		p := ContextProgram{ID: b.ID, Name: b.Name, Sections: []ContextSection{}}
		for _, s := range b.Sections {
			p.Sections = append(p.Sections, ContextSection{
				ID:          s.ID,
				Name:        s.Name,
				Description: s.Description,
				Days:        s.Days,
				Items:       s.Items,
			})
		}
		out.Programs = append(out.Programs, p)
	}

	entries, err := workout.Recent(ctx, profileID, recentHistoryRows)
	if err != nil {
		return nil, err
	}
	if windowDays < 365 {
		cutoff := time.Now().AddDate(0, 0, -windowDays).Format("2006-01-02")
		filtered := entries[:0]
		for _, e := range entries {
			if e.Date >= cutoff {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	out.History = entries
	return &out, nil
}

func setSummary(s workout.Set) string {
	summary := strconv.Itoa(s.Reps) + " reps"
	if s.Weight != nil {
		summary += " @ " + strconv.FormatFloat(*s.Weight, 'f', -1, 64) + " kg"
	}
	return summary
}

// RenderText renders the context as plain text for non-JSON consumers.
func (c *Context) RenderText() string {
	var b strings.Builder
	b.WriteString("Profile: " + c.ProfileName + "\n")

	for _, p := range c.Programs {
		b.WriteString("\nProgram: " + p.Name + "\n")
		for _, s := range p.Sections {
			b.WriteString("  Section: " + s.Name)
			if s.Description != "" {
				b.WriteString(" - " + s.Description)
			}
			b.WriteString("\n")
			if len(s.Days) > 0 {
				b.WriteString("    Days: " + strings.Join(s.Days, ", ") + "\n")
			}
			if len(s.Items) > 0 {
				b.WriteString("    Exercises: " + strings.Join(s.Items, ", ") + "\n")
			}
		}
	}

	if len(c.History) > 0 {
		b.WriteString("\nRecent training history:\n")
		entries := c.History
		if len(entries) > renderHistoryEntries {
			entries = entries[:renderHistoryEntries]
		}
		for _, e := range entries {
			summaries := make([]string, 0, len(e.Sets))
			for _, s := range e.Sets {
				summaries = append(summaries, setSummary(s))
			}
			b.WriteString("  " + e.Date + " " + e.ExerciseName)
			if len(summaries) > 0 {
				b.WriteString(": " + strings.Join(summaries, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
