// Package store persists orchestrator server records (URL + API token) in a
// local sqlite database so pipeline runs can reference a server by id
// instead of passing credentials on every invocation.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrServerNotFound means the referenced server record does not exist. This
// is a coordinator-entry failure: the run cannot start without credentials.
var ErrServerNotFound = errors.New("server not found")

// Server is one stored orchestrator target.
type Server struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// DefaultPath returns the store location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".liberate", "servers.db"), nil
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server store: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		token TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize server store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores a server record and returns its id.
func (s *Store) Put(name, url, token string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO servers (id, name, url, token, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, url, token, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store server %q: %w", name, err)
	}
	return id, nil
}

// Get loads one server by id or name.
func (s *Store) Get(idOrName string) (*Server, error) {
	row := s.db.QueryRow(
		`SELECT id, name, url, token, created_at FROM servers WHERE id = ? OR name = ?`,
		idOrName, idOrName,
	)

	var srv Server
	if err := row.Scan(&srv.ID, &srv.Name, &srv.URL, &srv.Token, &srv.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrServerNotFound, idOrName)
		}
		return nil, err
	}
	return &srv, nil
}

// List returns all stored servers, newest first.
func (s *Store) List() ([]Server, error) {
	rows, err := s.db.Query(`SELECT id, name, url, token, created_at FROM servers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []Server
	for rows.Next() {
		var srv Server
		if err := rows.Scan(&srv.ID, &srv.Name, &srv.URL, &srv.Token, &srv.CreatedAt); err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}

// Delete removes a server by id or name.
func (s *Store) Delete(idOrName string) error {
	res, err := s.db.Exec(`DELETE FROM servers WHERE id = ? OR name = ?`, idOrName, idOrName)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrServerNotFound, idOrName)
	}
	return nil
}
