// Package session persists the one durable piece of client state: the
// currently selected user. The store is an explicit capability handed
// to the view model rather than ambient global storage.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// Store loads and saves the selected user. Load returns (nil, nil)
// when no user has been selected yet.
type Store interface {
	Load() (*models.UserDetail, error)
	Save(user *models.UserDetail) error
	Clear() error
}

// SQLiteStore keeps the selected user as a JSON blob in a single-row
// local table, the same convenience role browser local storage plays.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (and if needed creates) the session database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping session database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		selected_user TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the selected user, or nil when none is stored.
func (s *SQLiteStore) Load() (*models.UserDetail, error) {
	var blob string
	err := s.db.QueryRow(`SELECT selected_user FROM session WHERE id = 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var user models.UserDetail
	if err := json.Unmarshal([]byte(blob), &user); err != nil {
		return nil, fmt.Errorf("failed to parse stored session: %w", err)
	}
	return &user, nil
}

// Save overwrites the selected user.
func (s *SQLiteStore) Save(user *models.UserDetail) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
	INSERT INTO session (id, selected_user)
	VALUES (1, ?)
	ON CONFLICT(id) DO UPDATE SET selected_user = excluded.selected_user
	`
	if _, err := s.db.Exec(query, string(blob)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the selected user.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
