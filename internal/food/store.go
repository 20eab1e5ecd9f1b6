// Package food serves the read-mostly nutrition reference table.
package food

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lifeone/internal/apperr"
)

var db *sql.DB

// Init wires the package to the database.
func Init(database *sql.DB) {
	db = database
}

// Food is one row of the nutrition reference table. Macronutrient
// values are per 100 g; Serving is a typical portion in grams.
type Food struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	UsdaID        *string            `json:"usdaId,omitempty"`
	Calories      *float64           `json:"calories"`
	Proteins      *float64           `json:"proteins"`
	Fat           *float64           `json:"fat"`
	Carbohydrates *float64           `json:"carbohydrates"`
	Serving       *float64           `json:"serving"`
	Nutrients     map[string]float64 `json:"nutrients,omitempty"`
}

const selectCols = `id, name, usda_id, calories, proteins, fat, carbohydrates, serving, nutrients`

func scanFood(row interface{ Scan(...any) error }) (*Food, error) {
	var (
		f         Food
		usdaID    sql.NullString
		nutrients sql.NullString
		cal, pro  sql.NullFloat64
		fat, carb sql.NullFloat64
		serving   sql.NullFloat64
	)
	err := row.Scan(&f.ID, &f.Name, &usdaID, &cal, &pro, &fat, &carb, &serving, &nutrients)
	if err != nil {
		return nil, err
	}
	if usdaID.Valid {
		f.UsdaID = &usdaID.String
	}
	if cal.Valid {
		f.Calories = &cal.Float64
	}
	if pro.Valid {
		f.Proteins = &pro.Float64
	}
	if fat.Valid {
		f.Fat = &fat.Float64
	}
	if carb.Valid {
		f.Carbohydrates = &carb.Float64
	}
	if serving.Valid {
		f.Serving = &serving.Float64
	}
	if nutrients.Valid && nutrients.String != "" {
		// Malformed nutrient blobs are dropped rather than failing the row.
		_ = json.Unmarshal([]byte(nutrients.String), &f.Nutrients)
	}
	return &f, nil
}

// List returns foods ordered by name, optionally filtered by a
// case-insensitive substring match on the name.
func List(ctx context.Context, query string, limit, offset int) ([]Food, error) {
	sqlQuery := `SELECT ` + selectCols + ` FROM foods`
	args := []any{}
	if q := strings.TrimSpace(query); q != "" {
		sqlQuery += ` WHERE name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+q+"%")
	}
	sqlQuery += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("listing foods: %w", err)
	}
	defer rows.Close()

	foods := []Food{}
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning food: %w", err)
		}
		foods = append(foods, *f)
	}
	return foods, rows.Err()
}

// Get resolves a food by numeric id or, failing that, by exact name.
func Get(ctx context.Context, idOrName string) (*Food, error) {
	idOrName = strings.TrimSpace(idOrName)
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		f, err := scanFood(db.QueryRowContext(ctx,
			`SELECT `+selectCols+` FROM foods WHERE id = ?`, id))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("looking up food by id: %w", err)
		}
	}
	f, err := scanFood(db.QueryRowContext(ctx,
		`SELECT `+selectCols+` FROM foods WHERE name = ? COLLATE NOCASE`, idOrName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Food not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up food by name: %w", err)
	}
	return f, nil
}

func fmtMacro(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// PromptSummary renders the first foods by name as a compact table for
// inclusion in a model prompt.
func PromptSummary(ctx context.Context, limit int) (string, error) {
	foods, err := List(ctx, "", limit, 0)
	if err != nil {
		return "", err
	}
	if len(foods) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("name | calories | proteins | fat | carbohydrates | serving\n")
	for _, f := range foods {
		b.WriteString(f.Name)
		b.WriteString(" | ")
		b.WriteString(fmtMacro(f.Calories))
		b.WriteString(" | ")
		b.WriteString(fmtMacro(f.Proteins))
		b.WriteString(" | ")
		b.WriteString(fmtMacro(f.Fat))
		b.WriteString(" | ")
		b.WriteString(fmtMacro(f.Carbohydrates))
		b.WriteString(" | ")
		b.WriteString(fmtMacro(f.Serving))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
