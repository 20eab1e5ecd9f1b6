package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema statements in order. Statements are written to
// be re-runnable; "duplicate column" errors from ALTER TABLE on an
// already-migrated database are tolerated.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		password_hash TEXT,
		created_at    TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS exercise_history (
		id            TEXT PRIMARY KEY,
		profile_id    TEXT NOT NULL REFERENCES profiles(id),
		exercise_name TEXT NOT NULL,
		date          TEXT NOT NULL,
		created_at    TEXT NOT NULL DEFAULT (datetime('now')),
		UNIQUE(profile_id, exercise_name, date)
	)`,

	`CREATE TABLE IF NOT EXISTS workout_sets (
		id                  TEXT PRIMARY KEY,
		exercise_history_id TEXT NOT NULL REFERENCES exercise_history(id),
		set_index           INTEGER NOT NULL,
		reps                INTEGER NOT NULL,
		weight_kg           REAL,
		note                TEXT,
		created_at          TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_workout_sets_history
		ON workout_sets(exercise_history_id, set_index)`,

	`CREATE TABLE IF NOT EXISTS meal_history (
		id         TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id),
		date       TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		UNIQUE(profile_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS meal_foods (
		id              TEXT PRIMARY KEY,
		meal_history_id TEXT NOT NULL REFERENCES meal_history(id),
		food_id         INTEGER,
		food_name       TEXT,
		amount_grams    REAL NOT NULL,
		note            TEXT,
		display_order   INTEGER NOT NULL,
		created_at      TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_meal_foods_history
		ON meal_foods(meal_history_id, display_order)`,

	`CREATE TABLE IF NOT EXISTS chat_messages (
		id         TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id),
		role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_chat_messages_profile
		ON chat_messages(profile_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS ai_settings (
		profile_id         TEXT PRIMARY KEY REFERENCES profiles(id),
		openrouter_api_key TEXT,
		openrouter_model   TEXT,
		temperature        REAL,
		max_tokens         INTEGER,
		created_at         TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS coach_personality_presets (
		id                 TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		description        TEXT,
		system_instruction TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS coach_personas (
		id                  TEXT PRIMARY KEY,
		profile_id          TEXT NOT NULL REFERENCES profiles(id),
		name                TEXT NOT NULL,
		personality_summary TEXT,
		methods_notes       TEXT,
		created_at          TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS coach_settings (
		profile_id            TEXT PRIMARY KEY REFERENCES profiles(id),
		personality_preset_id TEXT,
		coach_persona_id      TEXT,
		sport                 TEXT,
		updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS coach_context_files (
		id          TEXT PRIMARY KEY,
		profile_id  TEXT NOT NULL REFERENCES profiles(id),
		name        TEXT NOT NULL,
		content     TEXT NOT NULL,
		source_type TEXT NOT NULL DEFAULT 'general',
		created_at  TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS profile_handoff_sheet (
		profile_id TEXT PRIMARY KEY REFERENCES profiles(id),
		content    TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS foods (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		usda_id       TEXT,
		calories      REAL,
		proteins      REAL,
		fat           REAL,
		carbohydrates REAL,
		serving       REAL,
		nutrients     TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name)`,

	`CREATE TABLE IF NOT EXISTS nutrients (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		unit TEXT
	)`,
}
