package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenAndInit(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.EnsureSession(ctx, "")
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if id == "" {
		t.Fatal("new session id should not be empty")
	}

	same, err := s.EnsureSession(ctx, id)
	if err != nil {
		t.Fatalf("looking up session: %v", err)
	}
	if same != id {
		t.Errorf("known id %q replaced with %q", id, same)
	}

	fresh, err := s.EnsureSession(ctx, "no-such-session")
	if err != nil {
		t.Fatalf("recovering from unknown id: %v", err)
	}
	if fresh == "no-such-session" || fresh == "" {
		t.Errorf("unknown id should mint a fresh session, got %q", fresh)
	}
}

func TestStateRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sid, err := s.EnsureSession(ctx, "")
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	state := SessionState{
		Collected: []string{"sword", "bar"},
		// The discover box is ordered; it must come back verbatim.
		DiscoverBox:   []string{"wood", "gel", "torch"},
		RecipeIndices: map[string]int{"sword": 2, "bar": 0},
	}
	if err := s.SaveState(ctx, sid, state); err != nil {
		t.Fatalf("saving state: %v", err)
	}

	got, err := s.LoadState(ctx, sid)
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}
	sort.Strings(got.Collected)
	if len(got.Collected) != 2 || got.Collected[0] != "bar" || got.Collected[1] != "sword" {
		t.Errorf("collected = %v", got.Collected)
	}
	if b := got.DiscoverBox; len(b) != 3 || b[0] != "wood" || b[1] != "gel" || b[2] != "torch" {
		t.Errorf("discover box = %v, want order preserved", got.DiscoverBox)
	}
	if got.RecipeIndices["sword"] != 2 || got.RecipeIndices["bar"] != 0 {
		t.Errorf("recipe indices = %v", got.RecipeIndices)
	}
	if len(got.Expanded) != 0 {
		t.Errorf("expanded = %v, want empty when never set", got.Expanded)
	}
}

func TestClearedSetRoundTripsAsCleared(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sid, _ := s.EnsureSession(ctx, "")

	if err := s.SaveState(ctx, sid, SessionState{Expanded: []string{"a", "b"}}); err != nil {
		t.Fatalf("saving expanded: %v", err)
	}
	if err := s.SaveState(ctx, sid, SessionState{}); err != nil {
		t.Fatalf("clearing expanded: %v", err)
	}

	got, err := s.LoadState(ctx, sid)
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}
	if len(got.Expanded) != 0 {
		t.Errorf("expanded = %v, want empty after clearing", got.Expanded)
	}

	raw, err := s.Get(ctx, sid, "expanded_nodes")
	if err != nil {
		t.Fatalf("reading raw value: %v", err)
	}
	if raw != "[]" {
		t.Errorf("raw value = %q, want [] not null", raw)
	}
}

func TestInTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sid, _ := s.EnsureSession(ctx, "")

	wantErr := errors.New("boom")
	err := s.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertStateSQL, sid, "collected_items", `["x"]`); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the callback error", err)
	}

	raw, err := s.Get(ctx, sid, "collected_items")
	if err != nil {
		t.Fatalf("reading after rollback: %v", err)
	}
	if raw != "" {
		t.Errorf("value = %q, want the write rolled back", raw)
	}
}

func TestSessionsIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.EnsureSession(ctx, "")
	b, _ := s.EnsureSession(ctx, "")

	if err := s.SaveState(ctx, a, SessionState{Collected: []string{"sword"}}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	got, err := s.LoadState(ctx, b)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(got.Collected) != 0 {
		t.Errorf("session b sees session a's state: %v", got.Collected)
	}
}
