package store

import (
	"testing"
	"time"

	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/session"
)

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	opts = append([]Option{WithSQLiteDSN(":memory:")}, opts...)
	s, err := NewSQLiteStore(opts...)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ctx := session.NewContext("s1")
	ctx.AddTurn("need 500 servo motors", "sure", "INFO_PRICE", map[models.EntityType]string{
		models.EntityProduct:  "servo motor",
		models.EntityQuantity: "500",
	}, "neutral")
	ctx.UserProfile["tier"] = "wholesale"
	ctx.SetDialogState("active_flow", "rfq_flow")

	if err := s.SaveContext(ctx); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}

	loaded, err := s.LoadContext("s1")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadContext returned nil for a saved session")
	}
	if loaded.SessionID != "s1" {
		t.Errorf("session id = %q, want s1", loaded.SessionID)
	}
	if len(loaded.History) != 1 || loaded.History[0].Intent != "INFO_PRICE" {
		t.Errorf("history not restored: %+v", loaded.History)
	}
	if got := loaded.Entity(models.EntityProduct); got != "servo motor" {
		t.Errorf("product = %q, want servo motor", got)
	}
	if loaded.UserProfile["tier"] != "wholesale" {
		t.Errorf("user profile not restored: %v", loaded.UserProfile)
	}
	if loaded.GetDialogState("active_flow") != "rfq_flow" {
		t.Errorf("dialog state not restored: %v", loaded.DialogState)
	}
	if loaded.MaxTurns != session.DefaultMaxTurns || loaded.Expiry != session.DefaultExpiry {
		t.Error("loaded context must carry default limits")
	}
}

func TestSQLiteLoadMissingSession(t *testing.T) {
	s := newTestStore(t)

	loaded, err := s.LoadContext("nope")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for unknown session, got %+v", loaded)
	}
}

func TestSQLiteSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	ctx := session.NewContext("s1")
	if err := s.SaveContext(ctx); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	ctx.Entities[models.EntityProduct] = "valve"
	if err := s.SaveContext(ctx); err != nil {
		t.Fatalf("SaveContext (second): %v", err)
	}

	loaded, err := s.LoadContext("s1")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if got := loaded.Entity(models.EntityProduct); got != "valve" {
		t.Errorf("product = %q, want valve after overwrite", got)
	}
}

func TestSQLiteDeleteContext(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveContext(session.NewContext("s1")); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	if err := s.DeleteContext("s1"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	loaded, err := s.LoadContext("s1")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if loaded != nil {
		t.Error("context survived delete")
	}
}

func TestSQLiteSweepExpired(t *testing.T) {
	s := newTestStore(t, WithTTL(time.Hour))

	if err := s.SaveContext(session.NewContext("stale")); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	// Backdate the row past the TTL.
	if _, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE session_id = ?`,
		time.Now().Add(-2*time.Hour), "stale"); err != nil {
		t.Fatalf("backdating row: %v", err)
	}
	if err := s.SaveContext(session.NewContext("fresh")); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}

	n, err := s.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}

	stale, _ := s.LoadContext("stale")
	if stale != nil {
		t.Error("stale session survived sweep")
	}
	fresh, _ := s.LoadContext("fresh")
	if fresh == nil {
		t.Error("fresh session was swept")
	}
}
