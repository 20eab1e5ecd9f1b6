package workout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeone/internal/apperr"
	"lifeone/internal/database/testutil"
)

func setup(t *testing.T) (context.Context, string) {
	t.Helper()
	testdb := testutil.NewTestDB(t)
	Init(testdb)
	return context.Background(), testutil.NewProfile(t, testdb, "alex")
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }

func TestGetOrCreateReturnsSameID(t *testing.T) {
	ctx, profileID := setup(t)

	first, err := GetOrCreate(ctx, profileID, "Squat", "2026-08-01")
	require.NoError(t, err)
	second, err := GetOrCreate(ctx, profileID, "Squat", "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM exercise_history WHERE profile_id = ?`, profileID,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetOrCreateDistinctKeys(t *testing.T) {
	ctx, profileID := setup(t)

	a, err := GetOrCreate(ctx, profileID, "Squat", "2026-08-01")
	require.NoError(t, err)
	b, err := GetOrCreate(ctx, profileID, "Squat", "2026-08-02")
	require.NoError(t, err)
	c, err := GetOrCreate(ctx, profileID, "Bench", "2026-08-01")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAddSetAssignsContiguousIndexes(t *testing.T) {
	ctx, profileID := setup(t)

	for i := 0; i < 3; i++ {
		_, err := AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5, Weight: floatPtr(100)})
		require.NoError(t, err)
	}

	entry, err := GetForDate(ctx, profileID, "Squat", "2026-08-01")
	require.NoError(t, err)
	require.Len(t, entry.Sets, 3)

	rows, err := db.Query(
		`SELECT ws.set_index FROM workout_sets ws
		 JOIN exercise_history eh ON ws.exercise_history_id = eh.id
		 WHERE eh.profile_id = ? ORDER BY ws.set_index`, profileID)
	require.NoError(t, err)
	defer rows.Close()
	indexes := []int{}
	for rows.Next() {
		var idx int
		require.NoError(t, rows.Scan(&idx))
		indexes = append(indexes, idx)
	}
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestAddSetOptionalFields(t *testing.T) {
	ctx, profileID := setup(t)

	entry, err := AddSet(ctx, profileID, "Deadlift", "2026-08-01", Set{Reps: 3})
	require.NoError(t, err)
	require.Len(t, entry.Sets, 1)
	assert.Nil(t, entry.Sets[0].Weight)
	assert.Nil(t, entry.Sets[0].Note)
}

func TestUpdateSetByIndex(t *testing.T) {
	ctx, profileID := setup(t)

	_, err := AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5, Weight: floatPtr(100)})
	require.NoError(t, err)
	_, err = AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5, Weight: floatPtr(105)})
	require.NoError(t, err)

	entry, err := UpdateSet(ctx, profileID, "Squat", "2026-08-01", 1, SetPatch{
		Reps:   intPtr(3),
		Weight: floatPtr(110), WeightSet: true,
		Note: strPtr("grindy"), NoteSet: true,
	})
	require.NoError(t, err)
	require.Len(t, entry.Sets, 2)
	assert.Equal(t, 5, entry.Sets[0].Reps)
	assert.Equal(t, 3, entry.Sets[1].Reps)
	require.NotNil(t, entry.Sets[1].Weight)
	assert.Equal(t, 110.0, *entry.Sets[1].Weight)
	require.NotNil(t, entry.Sets[1].Note)
	assert.Equal(t, "grindy", *entry.Sets[1].Note)
}

func TestUpdateSetClearWeight(t *testing.T) {
	ctx, profileID := setup(t)

	_, err := AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5, Weight: floatPtr(100)})
	require.NoError(t, err)

	entry, err := UpdateSet(ctx, profileID, "Squat", "2026-08-01", 0, SetPatch{WeightSet: true})
	require.NoError(t, err)
	assert.Nil(t, entry.Sets[0].Weight)
}

func TestUpdateSetNoFieldsReturnsEntry(t *testing.T) {
	ctx, profileID := setup(t)

	_, err := AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5})
	require.NoError(t, err)

	entry, err := UpdateSet(ctx, profileID, "Squat", "2026-08-01", 0, SetPatch{})
	require.NoError(t, err)
	require.Len(t, entry.Sets, 1)
	assert.Equal(t, 5, entry.Sets[0].Reps)
}

func TestUpdateSetIndexOutOfRange(t *testing.T) {
	ctx, profileID := setup(t)

	_, err := AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5})
	require.NoError(t, err)

	_, err = UpdateSet(ctx, profileID, "Squat", "2026-08-01", 5, SetPatch{Reps: intPtr(1)})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestListNewestFirst(t *testing.T) {
	ctx, profileID := setup(t)

	for _, date := range []string{"2026-08-01", "2026-08-03", "2026-08-02"} {
		_, err := AddSet(ctx, profileID, "Squat", date, Set{Reps: 5})
		require.NoError(t, err)
	}

	entries, err := List(ctx, profileID, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2026-08-03", entries[0].Date)
	assert.Equal(t, "2026-08-02", entries[1].Date)
	assert.Equal(t, "2026-08-01", entries[2].Date)
}

func TestListFilterByExercise(t *testing.T) {
	ctx, profileID := setup(t)

	_, err := AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5})
	require.NoError(t, err)
	_, err = AddSet(ctx, profileID, "Bench", "2026-08-01", Set{Reps: 8})
	require.NoError(t, err)

	entries, err := List(ctx, profileID, "Bench")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Bench", entries[0].ExerciseName)
}

func TestLastDate(t *testing.T) {
	ctx, profileID := setup(t)

	last, err := LastDate(ctx, profileID, "Squat")
	require.NoError(t, err)
	assert.Empty(t, last)

	_, err = AddSet(ctx, profileID, "Squat", "2026-08-01", Set{Reps: 5})
	require.NoError(t, err)
	_, err = AddSet(ctx, profileID, "Squat", "2026-08-05", Set{Reps: 5})
	require.NoError(t, err)

	last, err = LastDate(ctx, profileID, "Squat")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-05", last)
}

func TestProfilesDoNotSeeEachOther(t *testing.T) {
	testdb := testutil.NewTestDB(t)
	Init(testdb)
	ctx := context.Background()
	alex := testutil.NewProfile(t, testdb, "alex")
	sam := testutil.NewProfile(t, testdb, "sam")

	_, err := AddSet(ctx, alex, "Squat", "2026-08-01", Set{Reps: 5})
	require.NoError(t, err)

	entries, err := List(ctx, sam, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
