// Package history keeps a local journal of uploaded attendance files. Only
// Drive metadata is recorded: never record contents, ciphertext, or passwords.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const (
	sqlInsertUpload = `INSERT INTO uploads
		(save_id, file_id, file_name, folder_id, web_view_link, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlListUploads = `SELECT save_id, file_id, file_name, folder_id, web_view_link, size, uploaded_at
		FROM uploads ORDER BY uploaded_at DESC, rowid DESC LIMIT ?`
)

// dirPerms matches the token directory: the journal names the user's files.
const dirPerms = 0o700

// Entry is one completed upload.
type Entry struct {
	SaveID      uuid.UUID
	FileID      string
	FileName    string
	FolderID    string
	WebViewLink string
	Size        int64
	UploadedAt  time.Time
}

// Journal is the sole writer to the history database.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the journal at path and applies
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("history: creating directory for %s: %w", path, err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history journal opened", slog.String("path", path))

	return &Journal{db: db, logger: logger}, nil
}

// Record appends e. A zero SaveID is replaced with a fresh one.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.SaveID == uuid.Nil {
		e.SaveID = uuid.New()
	}

	_, err := j.db.ExecContext(ctx, sqlInsertUpload,
		e.SaveID.String(), e.FileID, e.FileName, e.FolderID, e.WebViewLink, e.Size,
		e.UploadedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: recording %s: %w", e.FileName, err)
	}

	return nil
}

// List returns up to limit entries, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := j.db.QueryContext(ctx, sqlListUploads, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing uploads: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e        Entry
			saveID   string
			uploaded int64
		)

		if err := rows.Scan(&saveID, &e.FileID, &e.FileName, &e.FolderID, &e.WebViewLink, &e.Size, &uploaded); err != nil {
			return nil, fmt.Errorf("history: scanning upload row: %w", err)
		}

		e.SaveID, err = uuid.Parse(saveID)
		if err != nil {
			return nil, fmt.Errorf("history: invalid save id %q: %w", saveID, err)
		}

		e.UploadedAt = time.UnixMilli(uploaded).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating upload rows: %w", err)
	}

	return entries, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
