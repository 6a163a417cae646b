package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/fable/internal/game"
)

// PostgresStore keeps the session blob in a JSONB row and mirrors the
// character sheets into a side table so they can be inspected and
// queried independently of the blob.
type PostgresStore struct {
	pool      *pgxpool.Pool
	sessionID string
}

func NewPostgresStore(ctx context.Context, databaseURL, sessionID string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initGameSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = "default"
	}
	return &PostgresStore{pool: pool, sessionID: sessionID}, nil
}

func initGameSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id TEXT PRIMARY KEY,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS game_characters (
			session_id TEXT NOT NULL,
			participant TEXT NOT NULL,
			sheet JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, participant)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init game schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*game.SessionState, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM game_sessions WHERE id = $1`, s.sessionID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %q: %w", s.sessionID, err)
	}
	var state game.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, fmt.Errorf("decode session %q: %w", s.sessionID, err)
	}
	return &state, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, state *game.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", s.sessionID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO game_sessions (id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = now()`,
		s.sessionID, raw,
	)
	if err != nil {
		return fmt.Errorf("upsert session %q: %w", s.sessionID, err)
	}

	if err := s.saveCharacters(ctx, tx, state); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit session %q: %w", s.sessionID, err)
	}
	return nil
}

// saveCharacters upserts every current sheet and deletes rows for
// participants that no longer exist (a full reset clears the roster).
func (s *PostgresStore) saveCharacters(ctx context.Context, tx pgx.Tx, state *game.SessionState) error {
	present := make([]string, 0, len(state.Characters))
	for name, sheet := range state.Characters {
		raw, err := json.Marshal(sheet)
		if err != nil {
			return fmt.Errorf("encode sheet for %q: %w", name, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO game_characters (session_id, participant, sheet, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (session_id, participant) DO UPDATE SET
				sheet = EXCLUDED.sheet,
				updated_at = now()`,
			s.sessionID, name, raw,
		)
		if err != nil {
			return fmt.Errorf("upsert sheet for %q: %w", name, err)
		}
		present = append(present, name)
	}

	_, err := tx.Exec(ctx,
		`DELETE FROM game_characters WHERE session_id = $1 AND NOT (participant = ANY($2))`,
		s.sessionID, present,
	)
	if err != nil {
		return fmt.Errorf("prune sheets: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
