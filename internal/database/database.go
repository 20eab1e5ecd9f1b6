// Package database owns the SQLite connection and schema for the
// relational side of the system: profiles, logs, chat, coach and AI
// settings, and the foods reference tables. Program and diet blueprints
// live as JSON documents outside this package.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "modernc.org/sqlite"
)

// Service represents a service that interacts with the database.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	// Close terminates the database connection.
	Close()

	// DB exposes the underlying handle for the store packages.
	DB() *sql.DB
}

type service struct {
	db   *sql.DB
	path string
}

var dbInstance *service

// NewService opens (or reuses) the SQLite database at LIFE_ONE_DB,
// defaulting to life_one.db in the working directory, and applies the
// schema migrations.
func NewService() Service {
	if dbInstance != nil {
		return dbInstance
	}

	path := os.Getenv("LIFE_ONE_DB")
	if path == "" {
		path = "life_one.db"
	}

	db, err := Open(path)
	if err != nil {
		log.Fatalf("Unable to open database: %v\n", err)
	}

	dbInstance = &service{db: db, path: path}
	return dbInstance
}

// Open opens a SQLite database at the given path (":memory:" for tests),
// enables foreign keys, and runs the schema migrations.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Pragmas are connection-scoped; a single connection keeps them (and
	// the in-memory database used by tests) stable.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func (s *service) DB() *sql.DB { return s.db }

// Health checks the health of the database connection.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Printf("db down: %v", err)
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["database"] = s.path
	stats["open_conns"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration_ms"] = strconv.FormatInt(dbStats.WaitDuration.Milliseconds(), 10)

	return stats
}

// Close closes the database connection.
func (s *service) Close() {
	log.Printf("Disconnected from database: %s", s.path)
	s.db.Close()
}
