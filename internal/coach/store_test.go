package coach

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeone/internal/apperr"
	"lifeone/internal/database/testutil"
)

func setup(t *testing.T) (context.Context, *sql.DB, string) {
	t.Helper()
	testdb := testutil.NewTestDB(t)
	Init(testdb)
	return context.Background(), testdb, testutil.NewProfile(t, testdb, "alex")
}

func strPtr(s string) *string { return &s }

func insertPreset(t *testing.T, testdb *sql.DB, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := testdb.Exec(
		`INSERT INTO coach_personality_presets (id, name, description, system_instruction)
		 VALUES (?, ?, 'desc', 'Be direct.')`, id, name)
	require.NoError(t, err)
	return id
}

func TestListPresetsOrderedByName(t *testing.T) {
	ctx, testdb, _ := setup(t)
	insertPreset(t, testdb, "Zen")
	insertPreset(t, testdb, "Analytical")

	presets, err := ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "Analytical", presets[0].Name)
	assert.Equal(t, "Zen", presets[1].Name)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx, testdb, profileID := setup(t)
	presetID := insertPreset(t, testdb, "Analytical")

	got, err := GetSettings(ctx, profileID)
	require.NoError(t, err)
	assert.Nil(t, got.PersonalityPresetID)
	assert.Nil(t, got.Sport)

	got, err = PutSettings(ctx, profileID, Settings{
		PersonalityPresetID: &presetID,
		Sport:               strPtr("Running"),
	})
	require.NoError(t, err)
	require.NotNil(t, got.Sport)
	assert.Equal(t, "running", *got.Sport)
	require.NotNil(t, got.PersonalityPresetID)
	assert.Equal(t, presetID, *got.PersonalityPresetID)

	// Upsert replaces, not duplicates.
	got, err = PutSettings(ctx, profileID, Settings{Sport: strPtr("strength")})
	require.NoError(t, err)
	assert.Nil(t, got.PersonalityPresetID)
	assert.Equal(t, "strength", *got.Sport)
}

func TestPutSettingsRejectsUnknownSport(t *testing.T) {
	ctx, _, profileID := setup(t)
	_, err := PutSettings(ctx, profileID, Settings{Sport: strPtr("chess")})
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestPutSettingsRejectsForeignPersona(t *testing.T) {
	testdb := testutil.NewTestDB(t)
	Init(testdb)
	ctx := context.Background()
	alex := testutil.NewProfile(t, testdb, "alex")
	sam := testutil.NewProfile(t, testdb, "sam")

	persona, err := CreatePersona(ctx, sam, "Coach Sam", nil, nil)
	require.NoError(t, err)

	_, err = PutSettings(ctx, alex, Settings{CoachPersonaID: &persona.ID})
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestDeletePersonaClearsSettingsReference(t *testing.T) {
	ctx, _, profileID := setup(t)

	persona, err := CreatePersona(ctx, profileID, "Coach K", strPtr("strict"), nil)
	require.NoError(t, err)
	_, err = PutSettings(ctx, profileID, Settings{CoachPersonaID: &persona.ID})
	require.NoError(t, err)

	require.NoError(t, DeletePersona(ctx, profileID, persona.ID))

	settings, err := GetSettings(ctx, profileID)
	require.NoError(t, err)
	assert.Nil(t, settings.CoachPersonaID)

	_, err = GetPersona(ctx, profileID, persona.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestUpdatePersona(t *testing.T) {
	ctx, _, profileID := setup(t)

	persona, err := CreatePersona(ctx, profileID, "Coach K", nil, nil)
	require.NoError(t, err)

	persona, err = UpdatePersona(ctx, profileID, persona.ID, PersonaPatch{
		Name:    strPtr("Coach Kay"),
		Summary: strPtr("calm"), SummarySet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Coach Kay", persona.Name)
	require.NotNil(t, persona.PersonalitySummary)
	assert.Equal(t, "calm", *persona.PersonalitySummary)
}

func TestContextFileLifecycle(t *testing.T) {
	ctx, _, profileID := setup(t)

	_, err := CreateContextFile(ctx, profileID, "notes", "squat cues", "weird")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	f, err := CreateContextFile(ctx, profileID, "notes", "squat cues", "")
	require.NoError(t, err)
	assert.Equal(t, "general", f.SourceType)

	_, err = CreateContextFile(ctx, profileID, "podcast", "episode 12", "transcript")
	require.NoError(t, err)

	files, err := ListContextFiles(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "notes", files[0].Name)

	require.NoError(t, DeleteContextFile(ctx, profileID, f.ID))
	err = DeleteContextFile(ctx, profileID, f.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestHandoffSheetCap(t *testing.T) {
	ctx, _, profileID := setup(t)

	sheet, err := GetHandoffSheet(ctx, profileID)
	require.NoError(t, err)
	assert.Empty(t, sheet)

	require.NoError(t, PutHandoffSheet(ctx, profileID, "current block: hypertrophy"))
	require.NoError(t, PutHandoffSheet(ctx, profileID, "current block: strength"))

	sheet, err = GetHandoffSheet(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, "current block: strength", sheet)

	err = PutHandoffSheet(ctx, profileID, strings.Repeat("x", HandoffSheetMaxLen+1))
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}
