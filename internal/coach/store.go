// Package coach holds the coaching configuration: personality presets,
// user-defined personas, reference context files and the handoff sheet.
package coach

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

// SportOptions are the sports a profile can focus its coaching on.
var SportOptions = []string{"general", "strength", "running", "crossfit", "cycling", "swimming", "endurance"}

// SourceTypes classify where a context file's content came from.
var SourceTypes = []string{"transcript", "blog", "general"}

// HandoffSheetMaxLen caps the stored handoff sheet size in characters.
const HandoffSheetMaxLen = 50000

// Preset is a built-in coach personality.
type Preset struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	SystemInstruction *string `json:"systemInstruction"`
}

// ListPresets returns all personality presets ordered by name.
func ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, system_instruction
		 FROM coach_personality_presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close()

	presets := []Preset{}
	for rows.Next() {
		var (
			p           Preset
			desc, instr sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &desc, &instr); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		if desc.Valid {
			p.Description = &desc.String
		}
		if instr.Valid {
			p.SystemInstruction = &instr.String
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func getPreset(ctx context.Context, id string) (*Preset, error) {
	var (
		p           Preset
		desc, instr sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, system_instruction
		 FROM coach_personality_presets WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &desc, &instr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up preset: %w", err)
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	if instr.Valid {
		p.SystemInstruction = &instr.String
	}
	return &p, nil
}

// Persona is a profile-owned custom coach description.
type Persona struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	PersonalitySummary *string `json:"personalitySummary"`
	MethodsNotes       *string `json:"methodsNotes"`
}

func scanPersona(row interface{ Scan(...any) error }) (*Persona, error) {
	var (
		p              Persona
		summary, notes sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &summary, &notes); err != nil {
		return nil, err
	}
	if summary.Valid {
		p.PersonalitySummary = &summary.String
	}
	if notes.Valid {
		p.MethodsNotes = &notes.String
	}
	return &p, nil
}

// ListPersonas returns the profile's personas, newest first.
func ListPersonas(ctx context.Context, profileID string) ([]Persona, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, personality_summary, methods_notes
		 FROM coach_personas WHERE profile_id = ? ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}
	defer rows.Close()

	personas := []Persona{}
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning persona: %w", err)
		}
		personas = append(personas, *p)
	}
	return personas, rows.Err()
}

// GetPersona returns one persona the profile owns.
func GetPersona(ctx context.Context, profileID, personaID string) (*Persona, error) {
	p, err := scanPersona(db.QueryRowContext(ctx,
		`SELECT id, name, personality_summary, methods_notes
		 FROM coach_personas WHERE id = ? AND profile_id = ?`, personaID, profileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Coach persona not found")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up persona: %w", err)
	}
	return p, nil
}

// CreatePersona stores a new persona for the profile.
func CreatePersona(ctx context.Context, profileID, name string, summary, notes *string) (*Persona, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("name is required")
	}
	id := uuid.New().String()
	_, err := db.ExecContext(ctx,
		`INSERT INTO coach_personas (id, profile_id, name, personality_summary, methods_notes)
		 VALUES (?, ?, ?, ?, ?)`,
		id, profileID, name, nullable(summary), nullable(notes))
	if err != nil {
		return nil, fmt.Errorf("inserting persona: %w", err)
	}
	return GetPersona(ctx, profileID, id)
}

// PersonaPatch carries the updatable persona fields; unset fields stay.
type PersonaPatch struct {
	Name       *string
	Summary    *string
	SummarySet bool
	Notes      *string
	NotesSet   bool
}

// UpdatePersona patches a persona the profile owns.
func UpdatePersona(ctx context.Context, profileID, personaID string, patch PersonaPatch) (*Persona, error) {
	if _, err := GetPersona(ctx, profileID, personaID); err != nil {
		return nil, err
	}
	updates := []string{"updated_at = datetime('now')"}
	args := []any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validationf("name must not be empty")
		}
		updates = append(updates, "name = ?")
		args = append(args, name)
	}
	if patch.SummarySet {
		updates = append(updates, "personality_summary = ?")
		args = append(args, nullable(patch.Summary))
	}
	if patch.NotesSet {
		updates = append(updates, "methods_notes = ?")
		args = append(args, nullable(patch.Notes))
	}
	args = append(args, personaID)
	if _, err := db.ExecContext(ctx,
		"UPDATE coach_personas SET "+strings.Join(updates, ", ")+" WHERE id = ?",
		args...); err != nil {
		return nil, fmt.Errorf("updating persona: %w", err)
	}
	return GetPersona(ctx, profileID, personaID)
}

// DeletePersona removes a persona and clears any settings reference to
// it.
func DeletePersona(ctx context.Context, profileID, personaID string) error {
	if _, err := GetPersona(ctx, profileID, personaID); err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`UPDATE coach_settings SET coach_persona_id = NULL WHERE coach_persona_id = ?`,
		personaID); err != nil {
		return fmt.Errorf("clearing persona reference: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM coach_personas WHERE id = ?`, personaID); err != nil {
		return fmt.Errorf("deleting persona: %w", err)
	}
	return tx.Commit()
}

// Settings select the active coaching configuration for a profile.
type Settings struct {
	PersonalityPresetID *string `json:"personalityPresetId"`
	CoachPersonaID      *string `json:"coachPersonaId"`
	Sport               *string `json:"sport"`
}

// GetSettings returns the profile's coach settings; all fields are nil
// when nothing was ever saved.
func GetSettings(ctx context.Context, profileID string) (*Settings, error) {
	var (
		s                      Settings
		preset, persona, sport sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT personality_preset_id, coach_persona_id, sport
		 FROM coach_settings WHERE profile_id = ?`, profileID,
	).Scan(&preset, &persona, &sport)
	if errors.Is(err, sql.ErrNoRows) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up coach settings: %w", err)
	}
	if preset.Valid {
		s.PersonalityPresetID = &preset.String
	}
	if persona.Valid {
		s.CoachPersonaID = &persona.String
	}
	if sport.Valid {
		s.Sport = &sport.String
	}
	return &s, nil
}

// PutSettings validates and upserts the coach settings. A referenced
// persona must belong to the profile; the sport must be one of
// SportOptions.
func PutSettings(ctx context.Context, profileID string, s Settings) (*Settings, error) {
	if s.PersonalityPresetID != nil {
		preset, err := getPreset(ctx, *s.PersonalityPresetID)
		if err != nil {
			return nil, err
		}
		if preset == nil {
			return nil, apperr.Validationf("Unknown personality preset")
		}
	}
	if s.CoachPersonaID != nil {
		if _, err := GetPersona(ctx, profileID, *s.CoachPersonaID); err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return nil, apperr.Validationf("Unknown coach persona")
			}
			return nil, err
		}
	}
	if s.Sport != nil {
		sport := strings.ToLower(strings.TrimSpace(*s.Sport))
		valid := false
		for _, opt := range SportOptions {
			if sport == opt {
				valid = true
				break
			}
		}
		if !valid {
			return nil, apperr.Validationf("sport must be one of: %s", strings.Join(SportOptions, ", "))
		}
		s.Sport = &sport
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO coach_settings (profile_id, personality_preset_id, coach_persona_id, sport)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
			personality_preset_id = excluded.personality_preset_id,
			coach_persona_id      = excluded.coach_persona_id,
			sport                 = excluded.sport,
			updated_at            = datetime('now')`,
		profileID, nullable(s.PersonalityPresetID), nullable(s.CoachPersonaID), nullable(s.Sport))
	if err != nil {
		return nil, fmt.Errorf("saving coach settings: %w", err)
	}
	return GetSettings(ctx, profileID)
}

// ContextFile is reference material fed into the coach's prompt.
type ContextFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	SourceType string `json:"sourceType"`
}

// ListContextFiles returns the profile's context files, oldest first.
func ListContextFiles(ctx context.Context, profileID string) ([]ContextFile, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, content, source_type FROM coach_context_files
		 WHERE profile_id = ? ORDER BY created_at, rowid`, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing context files: %w", err)
	}
	defer rows.Close()

	files := []ContextFile{}
	for rows.Next() {
		var f ContextFile
		if err := rows.Scan(&f.ID, &f.Name, &f.Content, &f.SourceType); err != nil {
			return nil, fmt.Errorf("scanning context file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// CreateContextFile stores new reference material for the profile.
func CreateContextFile(ctx context.Context, profileID, name, content, sourceType string) (*ContextFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("name is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validationf("content is required")
	}
	if sourceType == "" {
		sourceType = "general"
	}
	sourceType = strings.ToLower(strings.TrimSpace(sourceType))
	valid := false
	for _, t := range SourceTypes {
		if sourceType == t {
			valid = true
			break
		}
	}
	if !valid {
		return nil, apperr.Validationf("sourceType must be one of: %s", strings.Join(SourceTypes, ", "))
	}

	f := ContextFile{ID: uuid.New().String(), Name: name, Content: content, SourceType: sourceType}
	_, err := db.ExecContext(ctx,
		`INSERT INTO coach_context_files (id, profile_id, name, content, source_type)
		 VALUES (?, ?, ?, ?, ?)`,
		f.ID, profileID, f.Name, f.Content, f.SourceType)
	if err != nil {
		return nil, fmt.Errorf("inserting context file: %w", err)
	}
	return &f, nil
}

// DeleteContextFile removes one of the profile's context files.
func DeleteContextFile(ctx context.Context, profileID, fileID string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM coach_context_files WHERE id = ? AND profile_id = ?`,
		fileID, profileID)
	if err != nil {
		return fmt.Errorf("deleting context file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting context file: %w", err)
	}
	if n == 0 {
		return apperr.NotFoundf("Context file not found")
	}
	return nil
}

// GetHandoffSheet returns the profile's handoff sheet, empty when never
// written.
func GetHandoffSheet(ctx context.Context, profileID string) (string, error) {
	var content string
	err := db.QueryRowContext(ctx,
		`SELECT content FROM profile_handoff_sheet WHERE profile_id = ?`, profileID,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up handoff sheet: %w", err)
	}
	return content, nil
}

// PutHandoffSheet upserts the profile's handoff sheet.
func PutHandoffSheet(ctx context.Context, profileID, content string) error {
	if len(content) > HandoffSheetMaxLen {
		return apperr.Validationf("Handoff sheet exceeds %d characters", HandoffSheetMaxLen)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO profile_handoff_sheet (profile_id, content)
		 VALUES (?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
			content = excluded.content, updated_at = datetime('now')`,
		profileID, content)
	if err != nil {
		return fmt.Errorf("saving handoff sheet: %w", err)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
