package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/campushq/steward/internal/command"
)

// Compile-time assertion that SQLiteStore satisfies the Recorder interface.
var _ Recorder = (*SQLiteStore)(nil)

// SQLiteStore is the embedded default [Recorder], backed by a single
// SQLite file. Suitable for single-instance deployments; use
// [PostgresStore] when multiple instances share one audit trail.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS command_records (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	raw_input       TEXT NOT NULL,
	agent           TEXT NOT NULL DEFAULT '',
	intent          TEXT NOT NULL DEFAULT '',
	entities        TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	clarification   TEXT,
	confirmation_token TEXT NOT NULL DEFAULT '',
	pending_action  TEXT NOT NULL DEFAULT '',
	result          TEXT,
	error_message   TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	completed_at    INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_records_token
	ON command_records(confirmation_token) WHERE confirmation_token != '';
CREATE INDEX IF NOT EXISTS idx_records_status_created
	ON command_records(status, created_at);
CREATE INDEX IF NOT EXISTS idx_records_conversation
	ON command_records(conversation_id, created_at);
`

// NewSQLite opens (creating if needed) the recorder database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}

	// WAL keeps concurrent readers off the writer's back.
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable, for readiness checks.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sqliteColumns = `id, conversation_id, raw_input, agent, intent, entities, status,
	clarification, confirmation_token, pending_action, result, error_message,
	created_at, completed_at`

// Create implements [Recorder.Create].
func (s *SQLiteStore) Create(ctx context.Context, rec command.Record) error {
	row, err := encodeRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO command_records (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.id, row.conversationID, row.rawInput, row.agent, row.intent,
		string(row.entities), row.status, nullable(row.clarification),
		row.token, row.pendingAction, nullable(row.result), row.errorMessage,
		row.createdAt.UnixMicro(), completedMicro(row.completedAt),
	)
	if err != nil {
		return fmt.Errorf("store: create record: %w", err)
	}
	return nil
}

// Get implements [Recorder.Get].
func (s *SQLiteStore) Get(ctx context.Context, id string) (command.Record, error) {
	return s.queryOne(ctx, `SELECT `+sqliteColumns+` FROM command_records WHERE id = ?`, id)
}

// Update implements [Recorder.Update].
func (s *SQLiteStore) Update(ctx context.Context, rec command.Record) error {
	stored, err := s.Get(ctx, rec.ID)
	if err != nil {
		return err
	}
	if stored.Status.Terminal() && !stored.CompletedAt.IsZero() {
		return ErrImmutable
	}

	row, err := encodeRow(rec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE command_records
		SET conversation_id = ?, raw_input = ?, agent = ?, intent = ?,
		    entities = ?, status = ?, clarification = ?,
		    confirmation_token = ?, pending_action = ?, result = ?,
		    error_message = ?, completed_at = ?
		WHERE id = ?`,
		row.conversationID, row.rawInput, row.agent, row.intent,
		string(row.entities), row.status, nullable(row.clarification),
		row.token, row.pendingAction, nullable(row.result), row.errorMessage,
		completedMicro(row.completedAt), row.id,
	)
	if err != nil {
		return fmt.Errorf("store: update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeToken implements [Recorder.ConsumeToken]. The status condition in
// the UPDATE is the compare-and-swap: of two concurrent confirms, exactly
// one affects a row.
func (s *SQLiteStore) ConsumeToken(ctx context.Context, token string) (command.Record, error) {
	if token == "" {
		return command.Record{}, ErrTokenInvalid
	}

	before, err := s.queryOne(ctx, `
		SELECT `+sqliteColumns+` FROM command_records
		WHERE confirmation_token = ? AND status = ?`,
		token, string(command.StatusPendingConfirmation))
	if errors.Is(err, ErrNotFound) {
		return command.Record{}, ErrTokenInvalid
	}
	if err != nil {
		return command.Record{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE command_records
		SET status = ?, confirmation_token = ''
		WHERE confirmation_token = ? AND status = ?`,
		string(command.StatusProcessing), token, string(command.StatusPendingConfirmation))
	if err != nil {
		return command.Record{}, fmt.Errorf("store: consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return command.Record{}, fmt.Errorf("store: consume token: %w", err)
	}
	if n == 0 {
		// Lost the race to a concurrent confirm/cancel.
		return command.Record{}, ErrTokenInvalid
	}
	return before, nil
}

// LatestAwaitingClarification implements
// [Recorder.LatestAwaitingClarification].
func (s *SQLiteStore) LatestAwaitingClarification(ctx context.Context, conversationID string) (command.Record, error) {
	return s.queryOne(ctx, `
		SELECT `+sqliteColumns+` FROM command_records
		WHERE conversation_id = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		conversationID, string(command.StatusAwaitingClarification))
}

// ListRecent implements [Recorder.ListRecent].
func (s *SQLiteStore) ListRecent(ctx context.Context, status command.Status, since time.Time, limit int) ([]command.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + sqliteColumns + ` FROM command_records WHERE created_at >= ?`
	args := []any{since.UnixMicro()}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	defer rows.Close()

	var out []command.Record
	for rows.Next() {
		rec, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) queryOne(ctx context.Context, q string, args ...any) (command.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return command.Record{}, fmt.Errorf("store: query record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return command.Record{}, fmt.Errorf("store: query record: %w", err)
		}
		return command.Record{}, ErrNotFound
	}
	return scanSQLiteRow(rows)
}

func scanSQLiteRow(rows *sql.Rows) (command.Record, error) {
	var (
		row             recordRow
		entities        string
		clarification   sql.NullString
		result          sql.NullString
		createdMicro    int64
		completedMicros int64
	)
	err := rows.Scan(
		&row.id, &row.conversationID, &row.rawInput, &row.agent, &row.intent,
		&entities, &row.status, &clarification, &row.token, &row.pendingAction,
		&result, &row.errorMessage, &createdMicro, &completedMicros,
	)
	if err != nil {
		return command.Record{}, fmt.Errorf("store: scan record: %w", err)
	}
	row.entities = []byte(entities)
	if clarification.Valid {
		row.clarification = []byte(clarification.String)
	}
	if result.Valid {
		row.result = []byte(result.String)
	}
	row.createdAt = time.UnixMicro(createdMicro).UTC()
	if completedMicros != 0 {
		row.completedAt = time.UnixMicro(completedMicros).UTC()
	}
	return decodeRow(row)
}

// nullable maps empty JSON blobs to NULL so the column stays queryable.
func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// completedMicro encodes the zero time as 0.
func completedMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
