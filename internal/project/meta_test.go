package project_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/recalldev/recall/internal/project"
)

func TestLoad_MissingFileIsNil(t *testing.T) {
	m, err := project.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m != nil {
		t.Errorf("Load = %+v, want nil for missing file", m)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".recall")

	want := &project.Meta{
		Name:        "payments-api",
		LastIndexed: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		FileCount:   42,
		ToolVersion: "1.2.0",
	}
	if err := project.Save(dir, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := project.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Name != want.Name || got.FileCount != 42 || got.ToolVersion != "1.2.0" {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
	if !got.LastIndexed.Equal(want.LastIndexed) {
		t.Errorf("LastIndexed = %v, want %v", got.LastIndexed, want.LastIndexed)
	}
}

func TestTouch_PreservesNameAcrossUpdates(t *testing.T) {
	dir := t.TempDir()

	if err := project.Touch(dir, "recall", "1.0.0", 10); err != nil {
		t.Fatalf("first Touch: %v", err)
	}
	// Later refresh without a name keeps the recorded one.
	if err := project.Touch(dir, "", "1.1.0", 25); err != nil {
		t.Fatalf("second Touch: %v", err)
	}

	m, err := project.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "recall" {
		t.Errorf("Name = %q, want preserved %q", m.Name, "recall")
	}
	if m.FileCount != 25 || m.ToolVersion != "1.1.0" {
		t.Errorf("FileCount=%d ToolVersion=%q, want 25/1.1.0", m.FileCount, m.ToolVersion)
	}
	if m.LastIndexed.IsZero() {
		t.Error("LastIndexed not stamped")
	}
}
