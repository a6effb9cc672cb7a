package memory_test

import (
	"strings"
	"testing"
)

func TestConsolidate_MergesOverlappingTopics(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddSession("added jwt validation", nil, nil, []string{"auth", "login", "jwt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSession("wired oauth callback", nil, nil, []string{"auth", "login", "oauth"}); err != nil {
		t.Fatal(err)
	}

	// Overlap 2, min set size 3 → 2/3 > 0.5: merge.
	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if res.SessionsMerged != 1 {
		t.Fatalf("SessionsMerged = %d, want 1", res.SessionsMerged)
	}

	sessions, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions after merge = %d, want 1", len(sessions))
	}

	// The newest session absorbs the older summary.
	sum := sessions[0].Summary
	if !strings.Contains(sum, "wired oauth callback") || !strings.Contains(sum, "added jwt validation") {
		t.Errorf("merged summary = %q, want both originals", sum)
	}
}

func TestConsolidate_DisjointTopicsNeverMerge(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddSession("one", nil, nil, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSession("two", nil, nil, []string{"b"}); err != nil {
		t.Fatal(err)
	}

	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if res.SessionsMerged != 0 {
		t.Errorf("SessionsMerged = %d, want 0", res.SessionsMerged)
	}
}

func TestConsolidate_EmptyTopicSetsSkipped(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddSession("no topics here", nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSession("none here either", nil, nil, []string{" ", ""}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSession("topical", nil, nil, []string{"auth"}); err != nil {
		t.Fatal(err)
	}

	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if res.SessionsMerged != 0 {
		t.Errorf("SessionsMerged = %d, want 0", res.SessionsMerged)
	}
}

func TestConsolidate_MergeCleansEntityRows(t *testing.T) {
	s := newTestStore(t)
	if err := s.InitMetadata(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.AddSession("old work", []string{"a/old.go"}, nil, []string{"auth", "jwt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSession("new work", []string{"b/new.go"}, nil, []string{"auth", "jwt"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Consolidate(); err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	// The absorbed session's derived entities are gone with it.
	hits, _, err := s.EntitySearch("old.go", "file")
	if err != nil {
		t.Fatalf("EntitySearch: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("entities of deleted session survived: %v", hits)
	}
	hits, _, err = s.EntitySearch("new.go", "file")
	if err != nil {
		t.Fatalf("EntitySearch: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("absorber entities = %d, want 1", len(hits))
	}
}

func TestConsolidate_FactSubstringDedup(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddFact("uses postgres", "infra"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("uses postgres for storage", "infra"); err != nil {
		t.Fatal(err)
	}

	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if res.FactsRemoved != 1 {
		t.Fatalf("FactsRemoved = %d, want 1", res.FactsRemoved)
	}

	facts, err := s.Facts(10)
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("facts = %d, want 1", len(facts))
	}
	if facts[0].Fact != "uses postgres for storage" {
		t.Errorf("surviving fact = %q, want the longer text", facts[0].Fact)
	}
}

func TestConsolidate_EqualFactsKeepEarlier(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.AddFact("ci runs on push", "ci")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("ci runs on push", "ci"); err != nil {
		t.Fatal(err)
	}

	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if res.FactsRemoved != 1 {
		t.Fatalf("FactsRemoved = %d, want 1", res.FactsRemoved)
	}

	facts, err := s.Facts(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 || facts[0].ID != id1 {
		t.Errorf("surviving fact id = %v, want the earlier %d", facts, id1)
	}
}

func TestConsolidate_DifferentCategoriesKept(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddFact("uses postgres", "infra"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("uses postgres", "deploy"); err != nil {
		t.Fatal(err)
	}

	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if res.FactsRemoved != 0 {
		t.Errorf("FactsRemoved = %d, want 0 across categories", res.FactsRemoved)
	}
}

func TestConsolidate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddSession("a", nil, nil, []string{"x", "y"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSession("b", nil, nil, []string{"x", "y"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("dup", "g"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddFact("dup", "g"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Consolidate(); err != nil {
		t.Fatalf("first Consolidate: %v", err)
	}
	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("second Consolidate: %v", err)
	}
	if res.SessionsMerged != 0 || res.FactsRemoved != 0 {
		t.Errorf("second pass merged=%d removed=%d, want 0/0", res.SessionsMerged, res.FactsRemoved)
	}
}

func TestConsolidate_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate on empty store: %v", err)
	}
	if res.SessionsMerged != 0 || res.FactsRemoved != 0 {
		t.Errorf("got %+v, want zeros", res)
	}
}
