package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	homedir "github.com/mitchellh/go-homedir"
)

const defaultLedgerPath = "~/.mcp-atlas/ingest.db"

// Entry is one ledger row: a single attempt to hand a document to the
// processing service. The ledger is append-only history, not a dedup index;
// re-running a pipeline records a fresh attempt.
type Entry struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Key          string    `json:"key"`
	ContentID    string    `json:"content_id"`
	ContentTitle string    `json:"content_title,omitempty"`
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"` // "ingested" or "failed"
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger is the SQLite-backed ingestion history.
type Ledger struct {
	db *sql.DB
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ingests (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	key           TEXT NOT NULL,
	content_id    TEXT NOT NULL,
	content_title TEXT NOT NULL DEFAULT '',
	filename      TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingests_created_at ON ingests(created_at DESC);
`

// OpenLedger opens (creating if needed) the ledger database at path. A
// leading ~ is expanded and parent directories are created.
func OpenLedger(path string) (*Ledger, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand ledger path %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite3", expanded+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", expanded, err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// OpenLedgerFromEnv opens the ledger at ATLAS_MCP_LEDGER_PATH, defaulting to
// ~/.mcp-atlas/ingest.db.
func OpenLedgerFromEnv() (*Ledger, error) {
	path := strings.TrimSpace(os.Getenv("ATLAS_MCP_LEDGER_PATH"))
	if path == "" {
		path = defaultLedgerPath
	}
	return OpenLedger(path)
}

func (l *Ledger) Close() error { return l.db.Close() }

// Append records one attempt. A missing ID or timestamp is filled in.
func (l *Ledger) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ingests (id, source, key, content_id, content_title, filename, size_bytes, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Key, e.ContentID, e.ContentTitle, e.Filename, e.SizeBytes, e.Status, e.Error, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, source, key, content_id, content_title, filename, size_bytes, status, error, created_at
		 FROM ingests ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Source, &e.Key, &e.ContentID, &e.ContentTitle,
			&e.Filename, &e.SizeBytes, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
