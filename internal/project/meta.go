// Package project persists lightweight project metadata next to the
// memory database. The file is informational: the store never reads it,
// callers own when it gets refreshed.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetaFile is the filename under the data directory.
const MetaFile = "project.json"

// Meta describes the project a memory store belongs to.
type Meta struct {
	Name        string    `json:"name"`
	LastIndexed time.Time `json:"last_indexed"`
	FileCount   int       `json:"file_count"`
	ToolVersion string    `json:"tool_version"`
}

// MetaPath returns the absolute path to project.json under dataDir.
func MetaPath(dataDir string) string {
	return filepath.Join(dataDir, MetaFile)
}

// Load reads project metadata from dataDir. A missing file returns nil
// without error so callers can treat it as "never written".
func Load(dataDir string) (*Meta, error) {
	data, err := os.ReadFile(MetaPath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading project metadata: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", MetaFile, err)
	}
	return &m, nil
}

// Save writes project metadata to dataDir, creating the directory if
// needed. The write goes through a temp file and rename so a crash
// never leaves a half-written project.json behind.
func Save(dataDir string, m *Meta) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project metadata: %w", err)
	}

	tmp := MetaPath(dataDir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing project metadata: %w", err)
	}
	if err := os.Rename(tmp, MetaPath(dataDir)); err != nil {
		return fmt.Errorf("replacing project metadata: %w", err)
	}
	return nil
}

// Touch updates the last-indexed stamp and file count, preserving the
// rest of an existing record.
func Touch(dataDir, name, version string, fileCount int) error {
	m, err := Load(dataDir)
	if err != nil {
		return err
	}
	if m == nil {
		m = &Meta{}
	}
	if name != "" {
		m.Name = name
	}
	m.LastIndexed = time.Now().UTC()
	m.FileCount = fileCount
	m.ToolVersion = version
	return Save(dataDir, m)
}
