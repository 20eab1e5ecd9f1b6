package coach

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
)

// ListPresetsHandler returns the built-in personality presets.
func ListPresetsHandler(c echo.Context) error {
	presets, err := ListPresets(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presets)
}

// GetSettingsHandler returns the profile's coach settings together with
// the available sport options.
func GetSettingsHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	settings, err := GetSettings(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"settings":     settings,
		"sportOptions": SportOptions,
	})
}

type settingsRequest struct {
	PersonalityPresetID *string `json:"personalityPresetId"`
	CoachPersonaID      *string `json:"coachPersonaId"`
	Sport               *string `json:"sport"`
}

// PutSettingsHandler replaces the profile's coach settings.
func PutSettingsHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	settings, err := PutSettings(c.Request().Context(), profileID, Settings{
		PersonalityPresetID: req.PersonalityPresetID,
		CoachPersonaID:      req.CoachPersonaID,
		Sport:               req.Sport,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// ListPersonasHandler returns the profile's custom personas.
func ListPersonasHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	personas, err := ListPersonas(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, personas)
}

type personaRequest struct {
	Name               string          `json:"name"`
	PersonalitySummary json.RawMessage `json:"personalitySummary"`
	MethodsNotes       json.RawMessage `json:"methodsNotes"`
}

func optionalString(raw json.RawMessage, field string) (*string, bool, error) {
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

// CreatePersonaHandler stores a new persona.
func CreatePersonaHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req personaRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	summary, _, err := optionalString(req.PersonalitySummary, "personalitySummary")
	if err != nil {
		return err
	}
	notes, _, err := optionalString(req.MethodsNotes, "methodsNotes")
	if err != nil {
		return err
	}
	persona, err := CreatePersona(c.Request().Context(), profileID, req.Name, summary, notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, persona)
}

// UpdatePersonaHandler patches one persona.
func UpdatePersonaHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req struct {
		Name               *string         `json:"name"`
		PersonalitySummary json.RawMessage `json:"personalitySummary"`
		MethodsNotes       json.RawMessage `json:"methodsNotes"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	var patch PersonaPatch
	patch.Name = req.Name
	if summary, set, err := optionalString(req.PersonalitySummary, "personalitySummary"); err != nil {
		return err
	} else if set {
		patch.Summary = summary
		patch.SummarySet = true
	}
	if notes, set, err := optionalString(req.MethodsNotes, "methodsNotes"); err != nil {
		return err
	} else if set {
		patch.Notes = notes
		patch.NotesSet = true
	}
	persona, err := UpdatePersona(c.Request().Context(), profileID, c.Param("persona_id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, persona)
}

// DeletePersonaHandler removes a persona; any settings reference to it
// is cleared.
func DeletePersonaHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	if err := DeletePersona(c.Request().Context(), profileID, c.Param("persona_id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// ListContextFilesHandler returns the profile's context files.
func ListContextFilesHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	files, err := ListContextFiles(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, files)
}

type contextFileRequest struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	SourceType string `json:"sourceType"`
}

// CreateContextFileHandler stores reference material for the coach.
func CreateContextFileHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req contextFileRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	file, err := CreateContextFile(c.Request().Context(), profileID, req.Name, req.Content, req.SourceType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, file)
}

// DeleteContextFileHandler removes one context file.
func DeleteContextFileHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	if err := DeleteContextFile(c.Request().Context(), profileID, c.Param("file_id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// GetHandoffSheetHandler returns the handoff sheet content.
func GetHandoffSheetHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	content, err := GetHandoffSheet(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"content": content})
}

// PutHandoffSheetHandler replaces the handoff sheet content.
func PutHandoffSheetHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	if err := PutHandoffSheet(c.Request().Context(), profileID, req.Content); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"content": req.Content})
}
