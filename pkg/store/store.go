package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ezivnuska/pokertable/pkg/poker"
)

var (
	// ErrNotFound means the referenced game record does not exist.
	ErrNotFound = errors.New("game not found")
	// ErrProcessing means another caller holds the mutual-exclusion flag.
	ErrProcessing = errors.New("game is currently being processed")
	// ErrVersionConflict means the record changed since it was loaded.
	ErrVersionConflict = errors.New("version conflict")
	// ErrExists means a record with that code already exists.
	ErrExists = errors.New("game already exists")
)

// Store persists game records as JSON documents in sqlite. The processing
// and version columns carry the concurrency protocol: processing is the
// mutual-exclusion flag flipped with a single-statement compare-and-set, and
// version guards optimistic writes.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the sqlite database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			code TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			processing INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// Create inserts a new game record with version 0 and the flag clear.
func (s *Store) Create(g *poker.Game) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO games (code, doc, version, processing) VALUES (?, ?, 0, 0)`, g.Code, string(doc))
	if err != nil {
		// sqlite reports PK violations as constraint errors; treat any
		// insert failure on an existing code as ErrExists.
		if exists, checkErr := s.exists(g.Code); checkErr == nil && exists {
			return ErrExists
		}
		return fmt.Errorf("failed to insert game: %w", err)
	}
	g.Version = 0
	g.Processing = false
	return nil
}

// Get loads the full record, including its version and processing flag.
func (s *Store) Get(code string) (*poker.Game, error) {
	var doc string
	var version int64
	var processing bool
	err := s.db.QueryRow(`SELECT doc, version, processing FROM games WHERE code = ?`, code).
		Scan(&doc, &version, &processing)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	var g poker.Game
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	g.Version = version
	g.Processing = processing
	return &g, nil
}

// Acquire atomically sets the processing flag if and only if it is clear.
// The UPDATE's WHERE clause makes the check-and-set a single indivisible
// operation inside sqlite.
func (s *Store) Acquire(code string) error {
	res, err := s.db.Exec(`UPDATE games SET processing = 1 WHERE code = ? AND processing = 0`, code)
	if err != nil {
		return fmt.Errorf("failed to acquire game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	exists, err := s.exists(code)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrProcessing
}

// Release unconditionally clears the processing flag. It deliberately does
// not check the version so a crashed critical section can never leave the
// record permanently locked.
func (s *Store) Release(code string) error {
	_, err := s.db.Exec(`UPDATE games SET processing = 0 WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to release game: %w", err)
	}
	return nil
}

// Save writes the record if and only if the stored version still matches the
// version it was loaded at, then bumps the version. A mismatch returns
// ErrVersionConflict.
func (s *Store) Save(g *poker.Game) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	res, err := s.db.Exec(
		`UPDATE games SET doc = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE code = ? AND version = ?`,
		string(doc), g.Code, g.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		exists, err := s.exists(g.Code)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	g.Version++
	return nil
}

// Delete removes a game record. The singleton table is never deleted; the
// engine enforces that, not the store.
func (s *Store) Delete(code string) error {
	res, err := s.db.Exec(`DELETE FROM games WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCodes returns every table code, for the periodic sweeps.
func (s *Store) ListCodes() ([]string, error) {
	rows, err := s.db.Query(`SELECT code FROM games ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *Store) exists(code string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM games WHERE code = ?`, code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
