package memory_test

import (
	"testing"
	"time"

	"github.com/recalldev/recall/internal/memory"
)

func TestNormalize_Empty(t *testing.T) {
	if got := memory.Normalize(""); got != "" {
		t.Errorf("Normalize(\"\") = %q, want \"\"", got)
	}
}

func TestNormalize_TodayBecomesISODate(t *testing.T) {
	restore := memory.SetNowFunc(func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	})
	defer restore()

	got := memory.Normalize("today I will ship")
	want := "2026-03-14 I will ship"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_YesterdayBecomesISODate(t *testing.T) {
	restore := memory.SetNowFunc(func() time.Time {
		return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	})
	defer restore()

	got := memory.Normalize("Yesterday we fixed the build.")
	want := "2026-02-28 we fixed the build."
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_DateIsCaseInsensitiveWholeWord(t *testing.T) {
	restore := memory.SetNowFunc(func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	})
	defer restore()

	// "todays" must not match; "Today," keeps its punctuation.
	got := memory.Normalize("Today, todays plan")
	want := "2026-03-14, todays plan"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_FillerAndDuplicateSentences(t *testing.T) {
	got := memory.Normalize("I think this is good. I think this is good.")
	want := "this is good."
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_FillerWordsRemoved(t *testing.T) {
	got := memory.Normalize("basically we actually just shipped it")
	want := "we shipped it"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_FillerPhrasesRemoved(t *testing.T) {
	got := memory.Normalize("You know, the cache is sort of broken")
	want := ", the cache is broken"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_WhitespaceCollapsed(t *testing.T) {
	got := memory.Normalize("line one\n\n  line\ttwo")
	want := "line one line two"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_InlinePathsKeepTheirDots(t *testing.T) {
	in := "see src/auth/middleware.ts and ExpressSession and lodash-es"
	if got := memory.Normalize(in); got != in {
		t.Errorf("Normalize = %q, want input unchanged %q", got, in)
	}
}

func TestNormalize_PathAtSentenceBoundary(t *testing.T) {
	got := memory.Normalize("touched pkg/db/store.go. touched pkg/db/store.go.")
	want := "touched pkg/db/store.go."
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_SentenceOrderPreserved(t *testing.T) {
	got := memory.Normalize("first part. second part. first part.")
	want := "first part. second part."
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}
