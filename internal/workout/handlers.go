package workout

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
)

// setBody is the wire shape of a set in create/update requests. Raw
// messages keep field presence observable so updates can distinguish
// "clear this field" from "leave it alone".
type setBody struct {
	Reps   *int            `json:"reps"`
	Weight json.RawMessage `json:"weight"`
	Note   json.RawMessage `json:"note"`
}

type logRequest struct {
	ExerciseName    string `json:"exerciseName"`
	ExerciseNameAlt string `json:"exercise_name"`
	Date            string `json:"date"`
	SetIndex        *int   `json:"setIndex"`
	SetIndexAlt     *int   `json:"set_index"`
	Set             *setBody `json:"set"`

	// Flat form: set fields at the top level instead of under "set".
	setBody
}

func (r *logRequest) exercise() string {
	if s := strings.TrimSpace(r.ExerciseName); s != "" {
		return s
	}
	return strings.TrimSpace(r.ExerciseNameAlt)
}

func (r *logRequest) setIndex() *int {
	if r.SetIndex != nil {
		return r.SetIndex
	}
	return r.SetIndexAlt
}

func (r *logRequest) set() *setBody {
	if r.Set != nil {
		return r.Set
	}
	return &r.setBody
}

func rawFloat(raw json.RawMessage) (*float64, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, true, apperr.Validationf("weight must be a number")
	}
	return &v, true, nil
}

func rawString(raw json.RawMessage) (*string, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, true, apperr.Validationf("note must be a string")
	}
	return &v, true, nil
}

// ListHandler returns the profile's workout logs, optionally filtered by
// exercise name.
func ListHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	entries, err := List(c.Request().Context(), profileID, c.QueryParam("exerciseName"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// LastDateHandler returns the most recent log date for an exercise.
func LastDateHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	exerciseName := c.QueryParam("exerciseName")
	if strings.TrimSpace(exerciseName) == "" {
		return apperr.Validationf("exerciseName is required")
	}
	date, err := LastDate(c.Request().Context(), profileID, exerciseName)
	if err != nil {
		return err
	}
	if date == "" {
		return c.JSON(http.StatusOK, map[string]any{"date": nil})
	}
	return c.JSON(http.StatusOK, map[string]string{"date": date})
}

// GetForDateHandler returns the entry for one exercise and date.
func GetForDateHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	entry, err := GetForDate(c.Request().Context(), profileID, c.Param("exercise_name"), c.Param("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// GetOrCreateHandler gets or creates the entry for exerciseName + date
// and returns it with its sets.
func GetOrCreateHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	exercise := req.exercise()
	date := strings.TrimSpace(req.Date)
	if exercise == "" || date == "" {
		return apperr.Validationf("exerciseName and date are required")
	}

	ctx := c.Request().Context()
	historyID, err := GetOrCreate(ctx, profileID, exercise, date)
	if err != nil {
		return err
	}
	entry, err := entryByID(ctx, historyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// AddSetHandler appends a set to the (exercise, date) entry.
func AddSetHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	exercise := req.exercise()
	date := strings.TrimSpace(req.Date)
	if exercise == "" || date == "" {
		return apperr.Validationf("exerciseName and date are required")
	}
	body := req.set()
	if body.Reps == nil {
		return apperr.Validationf("set.reps is required")
	}
	weight, _, err := rawFloat(body.Weight)
	if err != nil {
		return err
	}
	note, _, err := rawString(body.Note)
	if err != nil {
		return err
	}

	entry, err := AddSet(c.Request().Context(), profileID, exercise, date, Set{
		Reps:   *body.Reps,
		Weight: weight,
		Note:   note,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// UpdateSetHandler patches the set at setIndex for (exercise, date).
func UpdateSetHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	index := req.setIndex()
	if index == nil {
		return apperr.Validationf("setIndex is required")
	}
	body := req.set()

	patch := SetPatch{Reps: body.Reps}
	weight, weightSet, err := rawFloat(body.Weight)
	if err != nil {
		return err
	}
	patch.Weight, patch.WeightSet = weight, weightSet
	note, noteSet, err := rawString(body.Note)
	if err != nil {
		return err
	}
	patch.Note, patch.NoteSet = note, noteSet

	entry, err := UpdateSet(c.Request().Context(), profileID, req.exercise(), strings.TrimSpace(req.Date), *index, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}
