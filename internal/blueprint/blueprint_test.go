package blueprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGeneratesIDs(t *testing.T) {
	b := Normalize(map[string]any{
		"name": "  Push Pull Legs  ",
		"sections": []any{
			map[string]any{"name": " Push Day "},
		},
	}, KindProgram)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "Push Pull Legs", b.Name)
	require.Len(t, b.Sections, 1)
	assert.NotEmpty(t, b.Sections[0].ID)
	assert.Equal(t, "Push Day", b.Sections[0].Name)
}

func TestNormalizeKeepsExistingIDs(t *testing.T) {
	b := Normalize(map[string]any{
		"id":   " prog-1 ",
		"name": "Base",
	}, KindProgram)
	assert.Equal(t, "prog-1", b.ID)
}

func TestNormalizeDropsNonObjectSections(t *testing.T) {
	b := Normalize(map[string]any{
		"name": "Mixed",
		"sections": []any{
			"not a section",
			42,
			map[string]any{"name": "Real"},
		},
	}, KindProgram)
	require.Len(t, b.Sections, 1)
	assert.Equal(t, "Real", b.Sections[0].Name)
}

func TestNormalizeItemFallbackFieldName(t *testing.T) {
	b := Normalize(map[string]any{
		"name": "Legacy",
		"sections": []any{
			map[string]any{
				"name":           "A",
				"exercise_names": []any{" Squat ", "", "Deadlift", 7},
			},
		},
	}, KindProgram)
	require.Len(t, b.Sections, 1)
	assert.Equal(t, []string{"Squat", "Deadlift"}, b.Sections[0].Items)
}

func TestNormalizeDietItemKey(t *testing.T) {
	b := Normalize(map[string]any{
		"name": "Cut",
		"sections": []any{
			map[string]any{
				"name":      "Breakfast",
				"foodNames": []any{"Oats", " Eggs "},
			},
		},
	}, KindDiet)
	require.Len(t, b.Sections, 1)
	assert.Equal(t, []string{"Oats", "Eggs"}, b.Sections[0].Items)
}

func TestNormalizePreservesItemOrderAndDuplicates(t *testing.T) {
	b := Normalize(map[string]any{
		"name": "Dup",
		"sections": []any{
			map[string]any{
				"name":          "A",
				"exerciseNames": []any{"Squat", "Bench", "Squat"},
			},
		},
	}, KindProgram)
	assert.Equal(t, []string{"Squat", "Bench", "Squat"}, b.Sections[0].Items)
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := map[string]any{
		"name": "  Program  ",
		"sections": []any{
			map[string]any{
				"name":          " Day 1 ",
				"description":   " heavy ",
				"days":          []any{"mon", "thu"},
				"exerciseNames": []any{" Squat ", "Bench"},
			},
			"junk",
		},
	}
	once := Normalize(raw, KindProgram)

	encoded, err := json.Marshal(once.Doc(KindProgram))
	require.NoError(t, err)
	var roundtrip map[string]any
	require.NoError(t, json.Unmarshal(encoded, &roundtrip))

	twice := Normalize(roundtrip, KindProgram)
	assert.Equal(t, once, twice)
}

func TestDocUsesKindItemKey(t *testing.T) {
	b := &Blueprint{
		ID:   "d1",
		Name: "Diet",
		Sections: []Section{
			{ID: "s1", Name: "Lunch", Items: []string{"Rice"}},
		},
	}
	doc := b.Doc(KindDiet)
	sections := doc["sections"].([]map[string]any)
	require.Len(t, sections, 1)
	assert.Equal(t, []string{"Rice"}, sections[0]["foodNames"])
	_, hasExercises := sections[0]["exerciseNames"]
	assert.False(t, hasExercises)
}
