// Package meal implements meal history: one log entry per (profile,
// date) with an ordered list of food lines.
package meal

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

// Food is one logged food line. At least one of FoodID/FoodName is set.
type Food struct {
	ID          string  `json:"id"`
	FoodID      *int64  `json:"foodId,omitempty"`
	FoodName    string  `json:"foodName,omitempty"`
	AmountGrams float64 `json:"amountGrams"`
	Note        *string `json:"note"`
}

// Entry is a dated meal log with its ordered food lines.
type Entry struct {
	Date  string `json:"date"`
	Foods []Food `json:"foods"`
}

// GetOrCreate returns the meal log id for (profile, date), creating the
// row on first use. A lost race against the unique key is resolved by
// re-reading.
func GetOrCreate(ctx context.Context, profileID, date string) (string, error) {
	date = strings.TrimSpace(date)

	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM meal_history WHERE profile_id = ? AND date = ?`,
		profileID, date,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("looking up meal history: %w", err)
	}

	id = uuid.New().String()
	_, err = db.ExecContext(ctx,
		`INSERT INTO meal_history (id, profile_id, date) VALUES (?, ?, ?)`,
		id, profileID, date,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			err = db.QueryRowContext(ctx,
				`SELECT id FROM meal_history WHERE profile_id = ? AND date = ?`,
				profileID, date,
			).Scan(&id)
			if err != nil {
				return "", fmt.Errorf("re-reading meal history after conflict: %w", err)
			}
			return id, nil
		}
		return "", fmt.Errorf("inserting meal history: %w", err)
	}
	return id, nil
}

func foodsFor(ctx context.Context, historyID string) ([]Food, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, food_id, food_name, amount_grams, note FROM meal_foods
		 WHERE meal_history_id = ? ORDER BY display_order, created_at`,
		historyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing meal foods: %w", err)
	}
	defer rows.Close()

	foods := []Food{}
	for rows.Next() {
		var (
			f        Food
			foodID   sql.NullInt64
			foodName sql.NullString
			note     sql.NullString
		)
		if err := rows.Scan(&f.ID, &foodID, &foodName, &f.AmountGrams, &note); err != nil {
			return nil, fmt.Errorf("scanning meal food: %w", err)
		}
		if foodID.Valid {
			f.FoodID = &foodID.Int64
		}
		if foodName.Valid {
			f.FoodName = foodName.String
		}
		if note.Valid && note.String != "" {
			f.Note = &note.String
		}
		foods = append(foods, f)
	}
	return foods, rows.Err()
}

func entryByID(ctx context.Context, historyID string) (*Entry, error) {
	var e Entry
	err := db.QueryRowContext(ctx,
		`SELECT date FROM meal_history WHERE id = ?`, historyID,
	).Scan(&e.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Meal log not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading meal history: %w", err)
	}
	e.Foods, err = foodsFor(ctx, historyID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListFilter selects meal logs by exact date, by range, or (when empty)
// the latest 100 entries.
type ListFilter struct {
	Date     string
	DateFrom string
	DateTo   string
}

// List returns meal logs newest-first with their ordered food lines.
func List(ctx context.Context, profileID string, filter ListFilter) ([]Entry, error) {
	query := `SELECT id, date FROM meal_history WHERE profile_id = ?`
	args := []any{profileID}
	switch {
	case filter.Date != "":
		query += ` AND date = ? ORDER BY date DESC`
		args = append(args, strings.TrimSpace(filter.Date))
	case filter.DateFrom != "" && filter.DateTo != "":
		query += ` AND date >= ? AND date <= ? ORDER BY date DESC`
		args = append(args, strings.TrimSpace(filter.DateFrom), strings.TrimSpace(filter.DateTo))
	case filter.DateFrom != "":
		query += ` AND date >= ? ORDER BY date DESC`
		args = append(args, strings.TrimSpace(filter.DateFrom))
	case filter.DateTo != "":
		query += ` AND date <= ? ORDER BY date DESC`
		args = append(args, strings.TrimSpace(filter.DateTo))
	default:
		query += ` ORDER BY date DESC LIMIT 100`
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing meal history: %w", err)
	}
	defer rows.Close()

	type head struct {
		id   string
		date string
	}
	heads := []head{}
	for rows.Next() {
		var h head
		if err := rows.Scan(&h.id, &h.date); err != nil {
			return nil, fmt.Errorf("scanning meal history: %w", err)
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(heads))
	for _, h := range heads {
		foods, err := foodsFor(ctx, h.id)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Date: h.date, Foods: foods})
	}
	return out, nil
}

// All returns every meal log the profile has, newest first. It backs
// the bulk export.
func All(ctx context.Context, profileID string) ([]Entry, error) {
	return List(ctx, profileID, ListFilter{DateFrom: "0000-01-01"})
}

// GetForDate returns the meal log for a date or NotFound.
func GetForDate(ctx context.Context, profileID, date string) (*Entry, error) {
	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM meal_history WHERE profile_id = ? AND date = ?`,
		profileID, strings.TrimSpace(date),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Meal log not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up meal history: %w", err)
	}
	return entryByID(ctx, id)
}

// AddFood appends a food line to the date's meal log, creating the log
// if needed. Display order is max(existing)+1, zero for the first line.
func AddFood(ctx context.Context, profileID, date string, foodID *int64, foodName string, amountGrams float64, note *string) (*Entry, error) {
	historyID, err := GetOrCreate(ctx, profileID, date)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var maxOrder int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), -1) FROM meal_foods WHERE meal_history_id = ?`,
		historyID,
	).Scan(&maxOrder); err != nil {
		return nil, fmt.Errorf("reading max display order: %w", err)
	}

	var fid any
	if foodID != nil {
		fid = *foodID
	}
	var fname any
	if name := strings.TrimSpace(foodName); name != "" {
		fname = name
	}
	var n any
	if note != nil && strings.TrimSpace(*note) != "" {
		n = strings.TrimSpace(*note)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meal_foods (id, meal_history_id, food_id, food_name, amount_grams, note, display_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), historyID, fid, fname, amountGrams, n, maxOrder+1,
	); err != nil {
		return nil, fmt.Errorf("inserting meal food: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing meal food: %w", err)
	}

	return entryByID(ctx, historyID)
}

// ownedFoodEntry resolves a food line id to its parent log, checking the
// parent belongs to the profile.
func ownedFoodEntry(ctx context.Context, profileID, foodEntryID string) (historyID string, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT mf.meal_history_id FROM meal_foods mf
		 JOIN meal_history mh ON mf.meal_history_id = mh.id
		 WHERE mf.id = ? AND mh.profile_id = ?`,
		foodEntryID, profileID,
	).Scan(&historyID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFoundf("Food entry not found")
	}
	if err != nil {
		return "", fmt.Errorf("looking up meal food: %w", err)
	}
	return historyID, nil
}

// FoodPatch carries the fields of a food line update; absent fields are
// left untouched.
type FoodPatch struct {
	AmountGrams *float64
	Note        *string
	NoteSet     bool
}

// UpdateFood patches a food line. The full log is returned whether or
// not any field changed.
func UpdateFood(ctx context.Context, profileID, foodEntryID string, patch FoodPatch) (*Entry, error) {
	historyID, err := ownedFoodEntry(ctx, profileID, foodEntryID)
	if err != nil {
		return nil, err
	}

	updates := []string{}
	args := []any{}
	if patch.AmountGrams != nil {
		updates = append(updates, "amount_grams = ?")
		args = append(args, *patch.AmountGrams)
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
		args = append(args, foodEntryID)
		if _, err := db.ExecContext(ctx,
			"UPDATE meal_foods SET "+strings.Join(updates, ", ")+" WHERE id = ?",
			args...,
		); err != nil {
			return nil, fmt.Errorf("updating meal food: %w", err)
		}
	}

	return entryByID(ctx, historyID)
}

// DeleteFood removes a food line and returns the remaining log. Display
// orders of surviving lines are not renumbered.
func DeleteFood(ctx context.Context, profileID, foodEntryID string) (*Entry, error) {
	historyID, err := ownedFoodEntry(ctx, profileID, foodEntryID)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM meal_foods WHERE id = ?`, foodEntryID); err != nil {
		return nil, fmt.Errorf("deleting meal food: %w", err)
	}
	return entryByID(ctx, historyID)
}
