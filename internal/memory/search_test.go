package memory_test

import (
	"strings"
	"testing"
)

func TestSearch_FindsAcrossAllSources(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddSession("debugged the websocket handshake", nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddKnowledge("transport", "websocket reconnect uses backoff", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("websocket pings every 30s", "transport"); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search("websocket", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	types := map[string]bool{}
	for _, r := range results {
		types[r.SourceType] = true
		if !strings.Contains(r.Snippet, "[websocket]") {
			t.Errorf("snippet %q missing highlight", r.Snippet)
		}
	}
	for _, want := range []string{"session", "knowledge", "fact"} {
		if !types[want] {
			t.Errorf("missing source type %q", want)
		}
	}
}

func TestSearch_DescendingRelevance(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddFact("alpha", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("alpha beta gamma delta epsilon zeta", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("unrelated content entirely", "x"); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search("alpha", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	// FTS5 rank is ascending: each hit at least as relevant as the next.
	for i := 1; i < len(results); i++ {
		if results[i-1].Score > results[i].Score {
			t.Errorf("results not in relevance order: %v then %v", results[i-1].Score, results[i].Score)
		}
	}
}

func TestSearch_LimitRespected(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.AddFact("cache invalidation note "+strings.Repeat("x", i+1), "cache"); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.Search("cache", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search("   ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}

func TestSearch_KnowledgeUpsertReplacesIndexedText(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddKnowledge("queue", "uses rabbitmq", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddKnowledge("queue", "migrated to kafka", ""); err != nil {
		t.Fatal(err)
	}

	stale, err := s.Search("rabbitmq", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 0 {
		t.Errorf("stale index rows = %d, want 0", len(stale))
	}
	fresh, err := s.Search("kafka", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 1 {
		t.Errorf("fresh index rows = %d, want 1", len(fresh))
	}
}
