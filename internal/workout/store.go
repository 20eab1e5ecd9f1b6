// Package workout implements exercise history: one log entry per
// (profile, exercise, date) with an ordered list of sets.
package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lifeone/internal/apperr"
)

var db *sql.DB

// Init wires the package to the database.
func Init(database *sql.DB) {
	db = database
}

// Set is one performed set within a log entry.
type Set struct {
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight"`
	Note   *string  `json:"note"`
}

// Entry is a dated log for one exercise with its ordered sets.
type Entry struct {
	ExerciseName string `json:"exerciseName"`
	Date         string `json:"date"`
	Sets         []Set  `json:"sets"`
}

// GetOrCreate returns the log id for (profile, exercise, date), creating
// the row on first use. A concurrent insert losing the race against the
// unique key is resolved by re-reading the winner's row.
func GetOrCreate(ctx context.Context, profileID, exerciseName, date string) (string, error) {
	exerciseName = strings.TrimSpace(exerciseName)

	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM exercise_history WHERE profile_id = ? AND exercise_name = ? AND date = ?`,
		profileID, exerciseName, date,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("looking up exercise history: %w", err)
	}

	id = uuid.New().String()
	_, err = db.ExecContext(ctx,
		`INSERT INTO exercise_history (id, profile_id, exercise_name, date) VALUES (?, ?, ?, ?)`,
		id, profileID, exerciseName, date,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			err = db.QueryRowContext(ctx,
				`SELECT id FROM exercise_history WHERE profile_id = ? AND exercise_name = ? AND date = ?`,
				profileID, exerciseName, date,
			).Scan(&id)
			if err != nil {
				return "", fmt.Errorf("re-reading exercise history after conflict: %w", err)
			}
			return id, nil
		}
		return "", fmt.Errorf("inserting exercise history: %w", err)
	}
	return id, nil
}

func setsFor(ctx context.Context, historyID string) ([]Set, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT reps, weight_kg, note FROM workout_sets
		 WHERE exercise_history_id = ? ORDER BY set_index, created_at`,
		historyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	defer rows.Close()

	sets := []Set{}
	for rows.Next() {
		var (
			s      Set
			weight sql.NullFloat64
			note   sql.NullString
		)
		if err := rows.Scan(&s.Reps, &weight, &note); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		if weight.Valid {
			s.Weight = &weight.Float64
		}
		if note.Valid && note.String != "" {
			s.Note = &note.String
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

func entryByID(ctx context.Context, historyID string) (*Entry, error) {
	var e Entry
	err := db.QueryRowContext(ctx,
		`SELECT exercise_name, date FROM exercise_history WHERE id = ?`, historyID,
	).Scan(&e.ExerciseName, &e.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Log entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading exercise history: %w", err)
	}
	e.Sets, err = setsFor(ctx, historyID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns the profile's log entries newest-first, optionally
// restricted to one exercise.
func List(ctx context.Context, profileID, exerciseName string) ([]Entry, error) {
	query := `SELECT id, exercise_name, date FROM exercise_history
		WHERE profile_id = ? ORDER BY date DESC`
	args := []any{profileID}
	if exerciseName != "" {
		query = `SELECT id, exercise_name, date FROM exercise_history
			WHERE profile_id = ? AND exercise_name = ? ORDER BY date DESC`
		args = append(args, strings.TrimSpace(exerciseName))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing exercise history: %w", err)
	}
	defer rows.Close()

	type head struct {
		id    string
		entry Entry
	}
	heads := []head{}
	for rows.Next() {
		var h head
		if err := rows.Scan(&h.id, &h.entry.ExerciseName, &h.entry.Date); err != nil {
			return nil, fmt.Errorf("scanning exercise history: %w", err)
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(heads))
	for _, h := range heads {
		sets, err := setsFor(ctx, h.id)
		if err != nil {
			return nil, err
		}
		h.entry.Sets = sets
		out = append(out, h.entry)
	}
	return out, nil
}

// Recent returns up to limit entries newest-first with their sets. It
// backs the training-context assembly.
func Recent(ctx context.Context, profileID string, limit int) ([]Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, exercise_name, date FROM exercise_history
		 WHERE profile_id = ? ORDER BY date DESC, created_at DESC LIMIT ?`,
		profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent exercise history: %w", err)
	}
	defer rows.Close()

	type head struct {
		id    string
		entry Entry
	}
	heads := []head{}
	for rows.Next() {
		var h head
		if err := rows.Scan(&h.id, &h.entry.ExerciseName, &h.entry.Date); err != nil {
			return nil, fmt.Errorf("scanning exercise history: %w", err)
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(heads))
	for _, h := range heads {
		sets, err := setsFor(ctx, h.id)
		if err != nil {
			return nil, err
		}
		h.entry.Sets = sets
		out = append(out, h.entry)
	}
	return out, nil
}

// GetForDate returns the entry for (exercise, date) or NotFound.
func GetForDate(ctx context.Context, profileID, exerciseName, date string) (*Entry, error) {
	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM exercise_history WHERE profile_id = ? AND exercise_name = ? AND date = ?`,
		profileID, strings.TrimSpace(exerciseName), date,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Log entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up exercise history: %w", err)
	}
	return entryByID(ctx, id)
}

// LastDate returns the most recent date the exercise was logged, or ""
// when it never was.
func LastDate(ctx context.Context, profileID, exerciseName string) (string, error) {
	var date string
	err := db.QueryRowContext(ctx,
		`SELECT date FROM exercise_history
		 WHERE profile_id = ? AND exercise_name = ? ORDER BY date DESC LIMIT 1`,
		profileID, strings.TrimSpace(exerciseName),
	).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up last date: %w", err)
	}
	return date, nil
}

// AddSet appends a set to the (exercise, date) entry, creating the entry
// if needed. The set index is max(existing)+1, zero for the first set.
func AddSet(ctx context.Context, profileID, exerciseName, date string, set Set) (*Entry, error) {
	historyID, err := GetOrCreate(ctx, profileID, exerciseName, date)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var maxIndex int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(set_index), -1) FROM workout_sets WHERE exercise_history_id = ?`,
		historyID,
	).Scan(&maxIndex); err != nil {
		return nil, fmt.Errorf("reading max set index: %w", err)
	}

	var weight any
	if set.Weight != nil {
		weight = *set.Weight
	}
	var note any
	if set.Note != nil && strings.TrimSpace(*set.Note) != "" {
		note = strings.TrimSpace(*set.Note)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workout_sets (id, exercise_history_id, set_index, reps, weight_kg, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), historyID, maxIndex+1, set.Reps, weight, note,
	); err != nil {
		return nil, fmt.Errorf("inserting set: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing set: %w", err)
	}

	return entryByID(ctx, historyID)
}

// SetPatch carries the fields of a set update; absent fields are left
// untouched.
type SetPatch struct {
	Reps   *int
	Weight *float64
	// WeightSet distinguishes "weight": null (clear) from an absent field.
	WeightSet bool
	Note      *string
	NoteSet   bool
}

// UpdateSet patches the set at position setIndex in the ordered list for
// (exercise, date). The full entry is returned whether or not any field
// changed.
func UpdateSet(ctx context.Context, profileID, exerciseName, date string, setIndex int, patch SetPatch) (*Entry, error) {
	var historyID string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM exercise_history WHERE profile_id = ? AND exercise_name = ? AND date = ?`,
		profileID, strings.TrimSpace(exerciseName), date,
	).Scan(&historyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Log entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up exercise history: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id FROM workout_sets WHERE exercise_history_id = ? ORDER BY set_index, created_at`,
		historyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning set id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if setIndex < 0 || setIndex >= len(ids) {
		return nil, apperr.NotFoundf("Set index out of range")
	}
	setID := ids[setIndex]

	updates := []string{}
	args := []any{}
	if patch.Reps != nil {
		updates = append(updates, "reps = ?")
		args = append(args, *patch.Reps)
	}
	if patch.WeightSet {
		updates = append(updates, "weight_kg = ?")
		if patch.Weight != nil {
			args = append(args, *patch.Weight)
		} else {
			args = append(args, nil)
		}
	}
	if patch.NoteSet {
		updates = append(updates, "note = ?")
		if patch.Note != nil && strings.TrimSpace(*patch.Note) != "" {
			args = append(args, strings.TrimSpace(*patch.Note))
		} else {
			args = append(args, nil)
		}
	}
	if len(updates) > 0 {
		args = append(args, setID)
		if _, err := db.ExecContext(ctx,
			"UPDATE workout_sets SET "+strings.Join(updates, ", ")+" WHERE id = ?",
			args...,
		); err != nil {
			return nil, fmt.Errorf("updating set: %w", err)
		}
	}

	return entryByID(ctx, historyID)
}
