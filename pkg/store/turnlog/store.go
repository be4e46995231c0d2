// Package turnlog persists conversation turns and interruption events to
// Postgres.
package turnlog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store records turns and interruptions over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open runs pending migrations and connects a pool. The caller owns Close.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := migrate(dsn); err != nil {
		return nil, fmt.Errorf("turnlog: migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("turnlog: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("turnlog: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// migrate applies embedded goose migrations through the pgx stdlib adapter.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// TurnRecord is one persisted conversational turn.
type TurnRecord struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	Mode        string
	Transcript  string
	Cycles      int
	Duration    time.Duration
	Interrupted bool
	CreatedAt   time.Time
}

// RecordTurn inserts a completed turn. A zero ID gets a fresh uuid.
func (s *Store) RecordTurn(ctx context.Context, rec TurnRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO turns (id, session_id, mode, transcript, cycles, duration_ms, interrupted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.SessionID, rec.Mode, rec.Transcript, rec.Cycles,
		rec.Duration.Milliseconds(), rec.Interrupted,
	)
	if err != nil {
		return fmt.Errorf("turnlog: record turn: %w", err)
	}
	return nil
}

// RecordInterruption inserts one interruption outcome, dismissed or genuine.
func (s *Store) RecordInterruption(ctx context.Context, sessionID uuid.UUID, transcript string, dismissed bool, window time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO interruptions (id, session_id, transcript, dismissed, window_ms)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), sessionID, transcript, dismissed, window.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("turnlog: record interruption: %w", err)
	}
	return nil
}

// RecentTurns returns the newest turns for a session, newest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, mode, transcript, cycles, duration_ms, interrupted, created_at
		FROM turns
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("turnlog: recent turns: %w", err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var (
			rec        TurnRecord
			durationMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Mode, &rec.Transcript,
			&rec.Cycles, &durationMs, &rec.Interrupted, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("turnlog: scan turn: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("turnlog: recent turns: %w", err)
	}
	return out, nil
}
