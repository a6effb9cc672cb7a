package memory_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recalldev/recall/internal/memory"
)

// newTestStore creates a Store rooted at a temp directory for isolation.
func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.Open(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ─── Open / Init ────────────────────────────────────────────────────────────

func TestOpen_CreatesStoreFile(t *testing.T) {
	root := t.TempDir()
	s, err := memory.Open(memory.DefaultConfig(root))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(root, ".recall", "memory.db")); err != nil {
		t.Errorf("store file not created: %v", err)
	}
	if !memory.Exists(root) {
		t.Error("Exists() = false after Open")
	}
}

func TestInit_Idempotent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddFact("the schema survives re-init", "")
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}

	// Second Init must be a no-op: data intact, no error.
	if err := s.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if err := s.InitMetadata(); err != nil {
		t.Fatalf("InitMetadata: %v", err)
	}
	if err := s.InitMetadata(); err != nil {
		t.Fatalf("second InitMetadata: %v", err)
	}
	if err := s.InitVector(); err != nil {
		t.Fatalf("InitVector: %v", err)
	}
	if err := s.InitVector(); err != nil {
		t.Fatalf("second InitVector: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Facts != 1 {
		t.Errorf("Facts = %d after re-init, want 1 (id %d lost)", st.Facts, id)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	root := t.TempDir()
	cfg := memory.DefaultConfig(root)

	s1, err := memory.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	id, err := s1.AddSession("shipped the parser", nil, nil, nil)
	if err != nil {
		t.Fatalf("add session: %v", err)
	}
	s1.Close()

	s2, err := memory.Open(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	sess, err := s2.GetSession(id)
	if err != nil {
		t.Fatalf("session not found after reopen: %v", err)
	}
	if sess.Summary != "shipped the parser" {
		t.Errorf("summary = %q", sess.Summary)
	}
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func TestAddSession_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddSession(
		"refactored the auth middleware",
		[]string{"src/auth/middleware.go"},
		[]string{"edit", "bash"},
		[]string{"auth", "refactor"},
	)
	if err != nil {
		t.Fatalf("AddSession: %v", err)
	}
	if id == "" {
		t.Fatal("AddSession returned empty id")
	}

	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Summary != "refactored the auth middleware" {
		t.Errorf("Summary = %q", sess.Summary)
	}
	if len(sess.FilesTouched) != 1 || sess.FilesTouched[0] != "src/auth/middleware.go" {
		t.Errorf("FilesTouched = %v", sess.FilesTouched)
	}
	if len(sess.ToolsUsed) != 2 {
		t.Errorf("ToolsUsed = %v", sess.ToolsUsed)
	}
	if len(sess.Topics) != 2 {
		t.Errorf("Topics = %v", sess.Topics)
	}
}

func TestAddSession_SummaryIsNormalized(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddSession("I think the cache works. I think the cache works.", nil, nil, nil)
	if err != nil {
		t.Fatalf("AddSession: %v", err)
	}
	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Summary != "the cache works." {
		t.Errorf("Summary = %q, want %q", sess.Summary, "the cache works.")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	s := newTestStore(t)

	for _, summary := range []string{"first", "second", "third"} {
		if _, err := s.AddSession(summary, nil, nil, nil); err != nil {
			t.Fatalf("AddSession(%q): %v", summary, err)
		}
	}

	sessions, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2", len(sessions))
	}
	if sessions[0].Summary != "third" || sessions[1].Summary != "second" {
		t.Errorf("order = [%q, %q], want [third, second]", sessions[0].Summary, sessions[1].Summary)
	}
}

// ─── Knowledge ──────────────────────────────────────────────────────────────

func TestAddKnowledge_UpsertKeyedOnArea(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.AddKnowledge("auth", "uses JWT middleware", "always validate expiry")
	if err != nil {
		t.Fatalf("first AddKnowledge: %v", err)
	}
	id2, err := s.AddKnowledge("auth", "switched to session cookies", "rotate on login")
	if err != nil {
		t.Fatalf("second AddKnowledge: %v", err)
	}
	if id1 != id2 {
		t.Errorf("upsert produced new id: %d then %d", id1, id2)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Knowledge != 1 {
		t.Errorf("Knowledge rows = %d, want 1", st.Knowledge)
	}

	k, err := s.GetKnowledge("auth")
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if k.Summary != "switched to session cookies" {
		t.Errorf("Summary = %q, want updated value", k.Summary)
	}
	if k.Patterns != "rotate on login" {
		t.Errorf("Patterns = %q", k.Patterns)
	}
}

// ─── Facts ──────────────────────────────────────────────────────────────────

func TestAddFact_DefaultCategory(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddFact("uses postgres", ""); err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	facts, err := s.Facts(1)
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("len = %d", len(facts))
	}
	if facts[0].Category != "general" {
		t.Errorf("Category = %q, want general", facts[0].Category)
	}
}

// ─── Failure degradation ────────────────────────────────────────────────────

func TestAdd_SecondaryIndexFailureSwallowed(t *testing.T) {
	s := newTestStore(t)
	if err := s.InitMetadata(); err != nil {
		t.Fatalf("InitMetadata: %v", err)
	}

	// Every secondary write (FTS, entities) fails; primaries must land.
	s.FailExecContaining("INSERT")
	defer s.FailExecContaining("")

	if _, err := s.AddFact("primary row survives index failure", ""); err != nil {
		t.Fatalf("AddFact with failing secondary writes: %v", err)
	}
	if _, err := s.AddSession("so does the session row", nil, nil, nil); err != nil {
		t.Fatalf("AddSession with failing secondary writes: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Facts != 1 || st.Sessions != 1 {
		t.Errorf("facts=%d sessions=%d, want 1 and 1", st.Facts, st.Sessions)
	}
	if st.Entities != 0 {
		t.Errorf("entities = %d, want 0 (writes were failing)", st.Entities)
	}
}

// ─── Stats ──────────────────────────────────────────────────────────────────

func TestStats_Counts(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddSession("worked on search", nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddKnowledge("search", "FTS5 backed", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("ranking uses bm25", "search"); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Sessions != 1 || st.Knowledge != 1 || st.Facts != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", st.Sessions, st.Knowledge, st.Facts)
	}
	if st.VectorEnabled {
		t.Error("VectorEnabled = true without vector setup")
	}
}

func TestTruncate(t *testing.T) {
	if got := memory.Truncate("abcdef", 4); got != "abcd..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := memory.Truncate("abc", 4); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	if !strings.HasSuffix(memory.Truncate(strings.Repeat("x", 100), 10), "...") {
		t.Error("long input should gain ellipsis")
	}
}
