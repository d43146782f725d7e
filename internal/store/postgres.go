package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushq/steward/internal/command"
)

// Compile-time assertion that PostgresStore satisfies the Recorder interface.
var _ Recorder = (*PostgresStore)(nil)

// PostgresStore is a [Recorder] backed by PostgreSQL, for deployments where
// several engine instances share one audit trail.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS command_records (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	raw_input       TEXT NOT NULL,
	agent           TEXT NOT NULL DEFAULT '',
	intent          TEXT NOT NULL DEFAULT '',
	entities        JSONB NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	clarification   JSONB,
	confirmation_token TEXT NOT NULL DEFAULT '',
	pending_action  TEXT NOT NULL DEFAULT '',
	result          JSONB,
	error_message   TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_records_token
	ON command_records(confirmation_token) WHERE confirmation_token != '';
CREATE INDEX IF NOT EXISTS idx_records_status_created
	ON command_records(status, created_at);
CREATE INDEX IF NOT EXISTS idx_records_conversation
	ON command_records(conversation_id, created_at);
`

// NewPostgres connects to the database at dsn and ensures the schema.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Ping reports whether the database is reachable, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const pgColumns = `id, conversation_id, raw_input, agent, intent, entities, status,
	clarification, confirmation_token, pending_action, result, error_message,
	created_at, completed_at`

// Create implements [Recorder.Create].
func (s *PostgresStore) Create(ctx context.Context, rec command.Record) error {
	row, err := encodeRow(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO command_records (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		row.id, row.conversationID, row.rawInput, row.agent, row.intent,
		row.entities, row.status, jsonOrNil(row.clarification), row.token,
		row.pendingAction, jsonOrNil(row.result), row.errorMessage,
		row.createdAt, timeOrNil(row.completedAt),
	)
	if err != nil {
		return fmt.Errorf("store: create record: %w", err)
	}
	return nil
}

// Get implements [Recorder.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (command.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgColumns+` FROM command_records WHERE id = $1`, id)
	if err != nil {
		return command.Record{}, fmt.Errorf("store: get record: %w", err)
	}
	return collectOne(rows)
}

// Update implements [Recorder.Update].
func (s *PostgresStore) Update(ctx context.Context, rec command.Record) error {
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE command_records
		SET conversation_id = $2, raw_input = $3, agent = $4, intent = $5,
		    entities = $6, status = $7, clarification = $8,
		    confirmation_token = $9, pending_action = $10, result = $11,
		    error_message = $12, completed_at = $13
		WHERE id = $1`,
		row.id, row.conversationID, row.rawInput, row.agent, row.intent,
		row.entities, row.status, jsonOrNil(row.clarification), row.token,
		row.pendingAction, jsonOrNil(row.result), row.errorMessage,
		timeOrNil(row.completedAt),
	)
	if err != nil {
		return fmt.Errorf("store: update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeToken implements [Recorder.ConsumeToken]. The UPDATE's WHERE
// clause is the compare-and-swap; RETURNING hands back the pre-image fields
// that do not change, and status/token are restored from the match
// condition.
func (s *PostgresStore) ConsumeToken(ctx context.Context, token string) (command.Record, error) {
	if token == "" {
		return command.Record{}, ErrTokenInvalid
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE command_records
		SET status = $2, confirmation_token = ''
		WHERE confirmation_token = $1 AND status = $3
		RETURNING `+pgColumns,
		token, string(command.StatusProcessing), string(command.StatusPendingConfirmation))
	if err != nil {
		return command.Record{}, fmt.Errorf("store: consume token: %w", err)
	}
	rec, err := collectOne(rows)
	if errors.Is(err, ErrNotFound) {
		return command.Record{}, ErrTokenInvalid
	}
	if err != nil {
		return command.Record{}, err
	}

	// The row came back post-update; present the pre-consumption view.
	rec.Status = command.StatusPendingConfirmation
	rec.ConfirmationToken = token
	return rec, nil
}

// LatestAwaitingClarification implements
// [Recorder.LatestAwaitingClarification].
func (s *PostgresStore) LatestAwaitingClarification(ctx context.Context, conversationID string) (command.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgColumns+` FROM command_records
		WHERE conversation_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`,
		conversationID, string(command.StatusAwaitingClarification))
	if err != nil {
		return command.Record{}, fmt.Errorf("store: latest clarification: %w", err)
	}
	return collectOne(rows)
}

// ListRecent implements [Recorder.ListRecent].
func (s *PostgresStore) ListRecent(ctx context.Context, status command.Status, since time.Time, limit int) ([]command.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	args := []any{since}
	q := `SELECT ` + pgColumns + ` FROM command_records WHERE created_at >= $1`
	if status != "" {
		args = append(args, string(status))
		q += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	return pgx.CollectRows(rows, scanPGRow)
}

func collectOne(rows pgx.Rows) (command.Record, error) {
	rec, err := pgx.CollectOneRow(rows, scanPGRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return command.Record{}, ErrNotFound
	}
	if err != nil {
		return command.Record{}, fmt.Errorf("store: scan record: %w", err)
	}
	return rec, nil
}

func scanPGRow(r pgx.CollectableRow) (command.Record, error) {
	var (
		row       recordRow
		completed *time.Time
	)
	err := r.Scan(
		&row.id, &row.conversationID, &row.rawInput, &row.agent, &row.intent,
		&row.entities, &row.status, &row.clarification, &row.token,
		&row.pendingAction, &row.result, &row.errorMessage,
		&row.createdAt, &completed,
	)
	if err != nil {
		return command.Record{}, err
	}
	if completed != nil {
		row.completedAt = *completed
	}
	return decodeRow(row)
}

// jsonOrNil maps empty JSON blobs to NULL.
func jsonOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// timeOrNil maps the zero time to NULL.
func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
