package food

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeone/internal/apperr"
	"lifeone/internal/database/testutil"
)

func setup(t *testing.T) (context.Context, *sql.DB) {
	t.Helper()
	testdb := testutil.NewTestDB(t)
	Init(testdb)
	return context.Background(), testdb
}

func insertFood(t *testing.T, testdb *sql.DB, name string, calories float64) {
	t.Helper()
	_, err := testdb.Exec(
		`INSERT INTO foods (name, calories, proteins, fat, carbohydrates, serving)
		 VALUES (?, ?, 10, 5, 20, 100)`, name, calories)
	require.NoError(t, err)
}

func TestListOrderedByName(t *testing.T) {
	ctx, testdb := setup(t)
	insertFood(t, testdb, "Rice", 130)
	insertFood(t, testdb, "Apple", 52)

	foods, err := List(ctx, "", 100, 0)
	require.NoError(t, err)
	require.Len(t, foods, 2)
	assert.Equal(t, "Apple", foods[0].Name)
	assert.Equal(t, "Rice", foods[1].Name)
}

func TestListSubstringSearch(t *testing.T) {
	ctx, testdb := setup(t)
	insertFood(t, testdb, "Brown Rice", 111)
	insertFood(t, testdb, "White Rice", 130)
	insertFood(t, testdb, "Apple", 52)

	foods, err := List(ctx, "rice", 100, 0)
	require.NoError(t, err)
	require.Len(t, foods, 2)
	assert.Equal(t, "Brown Rice", foods[0].Name)
}

func TestListLimitOffset(t *testing.T) {
	ctx, testdb := setup(t)
	for _, name := range []string{"A", "B", "C"} {
		insertFood(t, testdb, name, 100)
	}

	foods, err := List(ctx, "", 2, 1)
	require.NoError(t, err)
	require.Len(t, foods, 2)
	assert.Equal(t, "B", foods[0].Name)
	assert.Equal(t, "C", foods[1].Name)
}

func TestGetByIDAndByName(t *testing.T) {
	ctx, testdb := setup(t)
	insertFood(t, testdb, "Oats", 389)
	var id int64
	require.NoError(t, testdb.QueryRow(`SELECT id FROM foods WHERE name = 'Oats'`).Scan(&id))

	byID, err := Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Oats", byID.Name)
	assert.Equal(t, id, byID.ID)

	byName, err := Get(ctx, "oats")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byName.ID)

	_, err = Get(ctx, "nope")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestGetNumericNameFallsBackToName(t *testing.T) {
	ctx, testdb := setup(t)
	insertFood(t, testdb, "42", 1) // a food literally named "42"

	f, err := Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", f.Name)
}

func TestPromptSummaryFormat(t *testing.T) {
	ctx, testdb := setup(t)

	summary, err := PromptSummary(ctx, 200)
	require.NoError(t, err)
	assert.Empty(t, summary)

	insertFood(t, testdb, "Oats", 389)
	_, err = testdb.Exec(`INSERT INTO foods (name) VALUES ('Mystery')`)
	require.NoError(t, err)

	summary, err = PromptSummary(ctx, 200)
	require.NoError(t, err)
	lines := strings.Split(summary, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name | calories | proteins | fat | carbohydrates | serving", lines[0])
	assert.Equal(t, "Mystery | - | - | - | - | -", lines[1])
	assert.Equal(t, "Oats | 389 | 10 | 5 | 20 | 100", lines[2])
}

func TestPromptSummaryLimit(t *testing.T) {
	ctx, testdb := setup(t)
	for _, name := range []string{"A", "B", "C"} {
		insertFood(t, testdb, name, 100)
	}

	summary, err := PromptSummary(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, strings.Split(summary, "\n"), 3) // header + 2 foods
}
