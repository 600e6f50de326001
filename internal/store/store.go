// Package store persists per-session viewer state in SQLite: collected
// items, expanded node ids, discover box contents, and recipe selections.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// State keys. Each maps to one JSON payload per session.
const (
	keyCollected     = "collected_items"
	keyExpanded      = "expanded_nodes"
	keyDiscoverBox   = "discover_box"
	keyRecipeIndices = "recipe_indices"
)

// Store wraps a sql.DB with session-state methods.
type Store struct {
	*sql.DB
}

// Open opens a SQLite database at the given path.
// If the path is ":memory:", an in-memory database is created.
func Open(path string) (*Store, error) {
	// Enable foreign keys and WAL mode for better concurrency
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{DB: sqlDB}, nil
}

// OpenAndInit opens the database and initializes the schema.
func OpenAndInit(ctx context.Context, path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}

	if err := s.InitSchema(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

// InitSchema creates all tables if they don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}
	if _, err := s.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// InTransaction executes fn within a transaction.
// If fn returns an error, the transaction is rolled back.
func (s *Store) InTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// EnsureSession returns the session id, creating a fresh session when the
// given id is empty or unknown.
func (s *Store) EnsureSession(ctx context.Context, id string) (string, error) {
	if id != "" {
		var exists int
		err := s.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = ?`, id,
		).Scan(&exists)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("looking up session: %w", err)
		}
	}

	id = uuid.NewString()
	if _, err := s.ExecContext(ctx,
		`INSERT INTO sessions (id) VALUES (?)`, id,
	); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// Get retrieves a raw state value. Returns "" when the key is unset.
func (s *Store) Get(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	err := s.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE session_id = ? AND key = ?`,
		sessionID, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying session state: %w", err)
	}

	return value, nil
}

func (s *Store) getJSON(ctx context.Context, sessionID, key string, v any) error {
	raw, err := s.Get(ctx, sessionID, key)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

const upsertStateSQL = `
	INSERT INTO session_state (session_id, key, value, updated_at)
	VALUES (?, ?, ?, datetime('now'))
	ON CONFLICT(session_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
`

// SessionState is everything persisted for one session. Slices encode as
// JSON arrays; the discover box keeps its order.
type SessionState struct {
	Collected     []string
	Expanded      []string
	DiscoverBox   []string
	RecipeIndices map[string]int
}

// SaveState writes every persisted key for a session in one transaction,
// so an interrupted save never leaves the keys disagreeing with each other.
func (s *Store) SaveState(ctx context.Context, sessionID string, st SessionState) error {
	if st.RecipeIndices == nil {
		st.RecipeIndices = map[string]int{}
	}
	entries := []struct {
		key   string
		value any
	}{
		{keyCollected, emptyNotNull(st.Collected)},
		{keyExpanded, emptyNotNull(st.Expanded)},
		{keyDiscoverBox, emptyNotNull(st.DiscoverBox)},
		{keyRecipeIndices, st.RecipeIndices},
	}

	return s.InTransaction(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			data, err := json.Marshal(e.value)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", e.key, err)
			}
			if _, err := tx.ExecContext(ctx, upsertStateSQL, sessionID, e.key, string(data)); err != nil {
				return fmt.Errorf("setting %s: %w", e.key, err)
			}
		}
		return nil
	})
}

// LoadState reads every persisted key for a session. Unset keys come back
// as empty collections.
func (s *Store) LoadState(ctx context.Context, sessionID string) (SessionState, error) {
	st := SessionState{RecipeIndices: make(map[string]int)}
	if err := s.getJSON(ctx, sessionID, keyCollected, &st.Collected); err != nil {
		return st, err
	}
	if err := s.getJSON(ctx, sessionID, keyExpanded, &st.Expanded); err != nil {
		return st, err
	}
	if err := s.getJSON(ctx, sessionID, keyDiscoverBox, &st.DiscoverBox); err != nil {
		return st, err
	}
	if err := s.getJSON(ctx, sessionID, keyRecipeIndices, &st.RecipeIndices); err != nil {
		return st, err
	}
	return st, nil
}

// emptyNotNull keeps empty slices encoding as [] rather than null, so a
// cleared set round-trips as cleared.
func emptyNotNull(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
