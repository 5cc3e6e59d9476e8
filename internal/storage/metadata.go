package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// SQLiteStore keeps one JSON document per submission in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time keeps sqlite from returning SQLITE_BUSY inside Update
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM submissions WHERE id = ?`, id)
	return scanSubmission(row)
}

func (s *SQLiteStore) List(ctx context.Context) ([]*types.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM submissions ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	list := []*types.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sub)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) Upsert(ctx context.Context, sub *types.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	query := `
	INSERT INTO submissions (id, created_at, data) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, sub.ID, createdAt(sub), string(data)); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*types.Submission) error) (*types.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sub, err := scanSubmission(tx.QueryRowContext(ctx, `SELECT data FROM submissions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(sub); err != nil {
		return nil, err
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE submissions SET data = ? WHERE id = ?`, string(data), id); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}
	return sub, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*types.Submission, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read submission: %w", err)
	}
	var sub types.Submission
	if err := json.Unmarshal([]byte(data), &sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	return &sub, nil
}

func createdAt(sub *types.Submission) time.Time {
	if sub.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return sub.CreatedAt.UTC()
}
