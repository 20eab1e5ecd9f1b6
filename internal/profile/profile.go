// Package profile exposes profile metadata, renames, and bulk
// import/export of a profile's data.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"lifeone/internal/apperr"
	"lifeone/internal/blueprint"
	"lifeone/internal/chat"
	"lifeone/internal/coach"
	"lifeone/internal/meal"
	"lifeone/internal/workout"
)

var (
	db       *sql.DB
	programs *blueprint.Store
	diets    *blueprint.Store
)

// Init wires the package to the database and the document stores.
func Init(database *sql.DB, programStore, dietStore *blueprint.Store) {
	db = database
	programs = programStore
	diets = dietStore
}

// Profile is the public view of an account.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func byID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up profile: %w", err)
	}
	return &p, nil
}

// ByName resolves a profile by display name.
func ByName(ctx context.Context, name string) (*Profile, error) {
	var p Profile
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM profiles WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up profile: %w", err)
	}
	return &p, nil
}

// Rename changes the display name, re-checking uniqueness.
func Rename(ctx context.Context, id, newName string) (*Profile, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperr.Validationf("name is required")
	}
	if len(newName) > 200 {
		return nil, apperr.Validationf("name must be at most 200 characters")
	}
	_, err := db.ExecContext(ctx,
		`UPDATE profiles SET name = ?, updated_at = datetime('now') WHERE id = ?`, newName, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, apperr.Conflictf("Profile name already taken")
		}
		return nil, fmt.Errorf("renaming profile: %w", err)
	}
	return byID(ctx, id)
}

// Export is the full dump of a profile's data.
type Export struct {
	Profile      *Profile            `json:"profile"`
	Programs     []map[string]any    `json:"programs"`
	Diets        []map[string]any    `json:"diets"`
	Workouts     []workout.Entry     `json:"workouts"`
	Meals        []meal.Entry        `json:"meals"`
	ChatHistory  []chat.Message      `json:"chatHistory"`
	CoachConfig  *coach.Settings     `json:"coachSettings"`
	Personas     []coach.Persona     `json:"coachPersonas"`
	ContextFiles []coach.ContextFile `json:"contextFiles"`
	HandoffSheet string              `json:"handoffSheet"`
}

// ExportAll gathers every slice of the profile's data concurrently.
func ExportAll(ctx context.Context, profileID string) (*Export, error) {
	var out Export
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Profile, err = byID(gctx, profileID)
		return err
	})
	g.Go(func() error {
		blueprints, err := programs.List(profileID)
		if err != nil {
			return err
		}
		out.Programs = make([]map[string]any, 0, len(blueprints))
		for _, b := range blueprints {
			out.Programs = append(out.Programs, b.Doc(blueprint.KindProgram))
		}
		return nil
	})
	g.Go(func() error {
		blueprints, err := diets.List(profileID)
		if err != nil {
			return err
		}
		out.Diets = make([]map[string]any, 0, len(blueprints))
		for _, b := range blueprints {
			out.Diets = append(out.Diets, b.Doc(blueprint.KindDiet))
		}
		return nil
	})
	g.Go(func() (err error) {
		out.Workouts, err = workout.List(gctx, profileID, "")
		return err
	})
	g.Go(func() (err error) {
		out.Meals, err = meal.All(gctx, profileID)
		return err
	})
	g.Go(func() (err error) {
		out.ChatHistory, err = chat.History(gctx, profileID, 500)
		return err
	})
	g.Go(func() (err error) {
		out.CoachConfig, err = coach.GetSettings(gctx, profileID)
		return err
	})
	g.Go(func() (err error) {
		out.Personas, err = coach.ListPersonas(gctx, profileID)
		return err
	})
	g.Go(func() (err error) {
		out.ContextFiles, err = coach.ListContextFiles(gctx, profileID)
		return err
	})
	g.Go(func() (err error) {
		out.HandoffSheet, err = coach.GetHandoffSheet(gctx, profileID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportData is the accepted shape for a bulk import.
type ImportData struct {
	Programs []map[string]any `json:"programs"`
	Diets    []map[string]any `json:"diets"`
	Workouts []importWorkout  `json:"workouts"`
}

type importWorkout struct {
	ExerciseName string        `json:"exerciseName"`
	Date         string        `json:"date"`
	Sets         []workout.Set `json:"sets"`
}

// ImportResult counts what a bulk import wrote.
type ImportResult struct {
	Programs int `json:"programs"`
	Diets    int `json:"diets"`
	Workouts int `json:"workouts"`
}

// ImportAll normalizes and stores program and diet documents and
// appends workout log entries. Documents replace any existing document
// with the same id.
func ImportAll(ctx context.Context, profileID string, data ImportData) (*ImportResult, error) {
	var res ImportResult

	for _, raw := range data.Programs {
		b := blueprint.Normalize(raw, blueprint.KindProgram)
		if err := programs.Save(profileID, b); err != nil {
			return nil, err
		}
		res.Programs++
	}
	for _, raw := range data.Diets {
		b := blueprint.Normalize(raw, blueprint.KindDiet)
		if err := diets.Save(profileID, b); err != nil {
			return nil, err
		}
		res.Diets++
	}
	for _, w := range data.Workouts {
		if strings.TrimSpace(w.ExerciseName) == "" || strings.TrimSpace(w.Date) == "" {
			return nil, apperr.Validationf("workout entries need exerciseName and date")
		}
		for _, s := range w.Sets {
			if _, err := workout.AddSet(ctx, profileID, w.ExerciseName, w.Date, s); err != nil {
				return nil, err
			}
		}
		res.Workouts++
	}
	return &res, nil
}
