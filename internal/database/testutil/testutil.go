// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"lifeone/internal/database"
)

// NewTestDB opens a fresh in-memory database with the full schema
// applied and closes it when the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// NewProfile inserts a profile row and returns its id.
func NewProfile(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO profiles (id, name, password_hash) VALUES (?, ?, 'x')`, id, name)
	require.NoError(t, err)
	return id
}
