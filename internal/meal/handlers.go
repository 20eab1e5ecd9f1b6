package meal

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
)

// ListHandler returns the profile's meal logs, filtered by ?date or a
// ?dateFrom/?dateTo range, newest first.
func ListHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	entries, err := List(c.Request().Context(), profileID, ListFilter{
		Date:     c.QueryParam("date"),
		DateFrom: c.QueryParam("dateFrom"),
		DateTo:   c.QueryParam("dateTo"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// GetForDateHandler returns the meal log for one date.
func GetForDateHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	date := strings.TrimSpace(c.Param("date"))
	if date == "" {
		return apperr.Validationf("date is required")
	}
	entry, err := GetForDate(c.Request().Context(), profileID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

type logRequest struct {
	Date        string          `json:"date"`
	FoodID      *int64          `json:"foodId"`
	FoodIDSnake *int64          `json:"food_id"`
	FoodName    string          `json:"foodName"`
	FoodNameSnk string          `json:"food_name"`
	AmountGrams json.RawMessage `json:"amountGrams"`
	AmountSnake json.RawMessage `json:"amount_grams"`
	Note        json.RawMessage `json:"note"`
}

func (r *logRequest) foodID() *int64 {
	if r.FoodID != nil {
		return r.FoodID
	}
	return r.FoodIDSnake
}

func (r *logRequest) foodName() string {
	if s := strings.TrimSpace(r.FoodName); s != "" {
		return s
	}
	return strings.TrimSpace(r.FoodNameSnk)
}

func rawFloat(raw json.RawMessage, field string) (float64, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, apperr.Validationf("%s must be a number", field)
	}
	return v, true, nil
}

func rawString(raw json.RawMessage, field string) (*string, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, apperr.Validationf("%s must be a string", field)
	}
	return &v, true, nil
}

// GetOrCreateHandler ensures a meal log exists for the given date and
// returns it.
func GetOrCreateHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	if strings.TrimSpace(req.Date) == "" {
		return apperr.Validationf("date is required")
	}
	historyID, err := GetOrCreate(c.Request().Context(), profileID, req.Date)
	if err != nil {
		return err
	}
	entry, err := entryByID(c.Request().Context(), historyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// AddFoodHandler appends a food line to the date's meal log. One of
// foodId/foodName is required; amountGrams defaults to 100.
func AddFoodHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	if strings.TrimSpace(req.Date) == "" {
		return apperr.Validationf("date is required")
	}
	foodID := req.foodID()
	foodName := req.foodName()
	if foodID == nil && foodName == "" {
		return apperr.Validationf("foodId or foodName is required")
	}

	amountRaw := req.AmountGrams
	if len(amountRaw) == 0 {
		amountRaw = req.AmountSnake
	}
	amount, present, err := rawFloat(amountRaw, "amountGrams")
	if err != nil {
		return err
	}
	if !present {
		amount = 100
	}
	if amount <= 0 {
		return apperr.Validationf("amountGrams must be positive")
	}

	note, _, err := rawString(req.Note, "note")
	if err != nil {
		return err
	}

	entry, err := AddFood(c.Request().Context(), profileID, req.Date, foodID, foodName, amount, note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

type updateFoodRequest struct {
	AmountGrams json.RawMessage `json:"amountGrams"`
	AmountSnake json.RawMessage `json:"amount_grams"`
	Note        json.RawMessage `json:"note"`
}

// UpdateFoodHandler patches one food line by its id and returns the
// full log it belongs to.
func UpdateFoodHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	foodEntryID := c.Param("food_entry_id")
	var req updateFoodRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}

	var patch FoodPatch
	amountRaw := req.AmountGrams
	if len(amountRaw) == 0 {
		amountRaw = req.AmountSnake
	}
	if amount, present, err := rawFloat(amountRaw, "amountGrams"); err != nil {
		return err
	} else if present {
		if amount <= 0 {
			return apperr.Validationf("amountGrams must be positive")
		}
		patch.AmountGrams = &amount
	}
	if note, set, err := rawString(req.Note, "note"); err != nil {
		return err
	} else if set {
		patch.Note = note
		patch.NoteSet = true
	}

	entry, err := UpdateFood(c.Request().Context(), profileID, foodEntryID, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// DeleteFoodHandler removes one food line and returns the remaining log.
func DeleteFoodHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	entry, err := DeleteFood(c.Request().Context(), profileID, c.Param("food_entry_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}
