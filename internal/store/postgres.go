package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists settings and voice assignments in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS voice_assignments (
			id TEXT PRIMARY KEY,
			user_key TEXT NOT NULL UNIQUE,
			voice_ref TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS recent_users (
			position INT PRIMARY KEY,
			user_key TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setting rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveDefaultVoice(ctx context.Context, source, encodedRef string) error {
	return s.SetSetting(ctx, DefaultVoiceKey(source), encodedRef)
}

func (s *PostgresStore) Assignments(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_key, voice_ref FROM voice_assignments`)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, ref string
		if err := rows.Scan(&key, &ref); err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}
		out[key] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveAssignment(ctx context.Context, userKey, encodedRef string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_assignments (id, user_key, voice_ref, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_key) DO UPDATE SET voice_ref = EXCLUDED.voice_ref, updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), userKey, encodedRef, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAssignment(ctx context.Context, userKey string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM voice_assignments WHERE user_key = $1`, userKey)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentUsers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_key FROM recent_users ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query recent users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan recent user row: %w", err)
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent user rows: %w", err)
	}
	return out, nil
}

// SaveRecentUsers replaces the list wholesale; it is small (bounded at 20)
// and mutated rarely enough that a truncate-and-insert transaction is fine.
func (s *PostgresStore) SaveRecentUsers(ctx context.Context, userKeys []string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin recent users tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM recent_users`); err != nil {
		return fmt.Errorf("clear recent users: %w", err)
	}
	for i, key := range userKeys {
		if _, err := tx.Exec(ctx,
			`INSERT INTO recent_users (position, user_key) VALUES ($1, $2)`, i, key); err != nil {
			return fmt.Errorf("insert recent user: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit recent users: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
