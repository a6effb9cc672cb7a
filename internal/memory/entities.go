package memory

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/log"
)

// Entity candidate matchers. Each one is independent; candidates are
// unioned before insertion.
var (
	// inline paths: alphanumeric/._- segments joined by '/', ending in a
	// 1-6 letter extension.
	pathPattern = regexp.MustCompile(`[A-Za-z0-9_.-]+(?:/[A-Za-z0-9_.-]+)+\.[A-Za-z]{1,6}\b`)

	// CapitalizedCamel with two or more segments, e.g. ExpressSession.
	conceptPattern = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b`)

	// lowercase-dash identifiers, e.g. lodash-es.
	packagePattern = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:-[a-z0-9]+)+\b`)
)

type entityCandidate struct {
	entity     string
	entityType string
}

// extractCandidates runs all matchers over the text and files list and
// returns the deduplicated union, in first-seen order.
func extractCandidates(text string, files []string) []entityCandidate {
	var out []entityCandidate
	seen := make(map[string]bool)
	add := func(entity, entityType string) {
		if entity == "" {
			return
		}
		key := entityType + "\x00" + entity
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, entityCandidate{entity: entity, entityType: entityType})
	}

	for _, f := range files {
		add(f, "file")
	}
	for _, m := range pathPattern.FindAllString(text, -1) {
		add(m, "file")
	}
	for _, m := range conceptPattern.FindAllString(text, -1) {
		add(m, "concept")
	}
	for _, m := range packagePattern.FindAllString(text, -1) {
		add(m, "package")
	}
	return out
}

// extractEntities derives entity rows from newly stored text. It runs
// only when the entity schema exists; absence is a silent no-op. Insert
// failures are swallowed — entity rows are a derived index, never
// authoritative.
func (s *Store) extractEntities(sourceType, sourceID, text string, files []string) {
	if !s.hasTable("entity_metadata") {
		return
	}
	for _, c := range extractCandidates(text, files) {
		if _, err := s.execHook(s.db,
			`INSERT OR IGNORE INTO entity_metadata (entity, entity_type, source_type, source_id)
			 VALUES (?, ?, ?, ?)`,
			c.entity, c.entityType, sourceType, sourceID,
		); err != nil {
			log.Debug("memory: entity insert failed", "entity", c.entity, "err", err)
		}
	}
}

// deleteEntities removes the derived entity rows for a source record.
// Failures are tolerated; the caller's primary deletion is unaffected.
func (s *Store) deleteEntities(sourceType, sourceID string) {
	if !s.hasTable("entity_metadata") {
		return
	}
	if _, err := s.execHook(s.db,
		`DELETE FROM entity_metadata WHERE source_type = ? AND source_id = ?`,
		sourceType, sourceID,
	); err != nil {
		log.Debug("memory: entity cleanup failed", "source", sourceType, "id", sourceID, "err", err)
	}
}

// EntitySearch finds entities by substring match, optionally filtered
// by exact entity type, newest first, capped at 10 results. The second
// return value reports whether the entity index is initialized at all;
// false is not an error, the caller decides how to surface it.
func (s *Store) EntitySearch(query, entityType string) ([]EntityHit, bool, error) {
	if !s.hasTable("entity_metadata") {
		return nil, false, nil
	}

	sqlStr := `
		SELECT e.entity, e.entity_type, e.source_type, e.source_id,
		       CASE e.source_type
		           WHEN 'session' THEN
		               COALESCE((SELECT s.summary FROM sessions s WHERE s.id = e.source_id), '')
		           WHEN 'knowledge' THEN
		               COALESCE((SELECT k.area || ': ' || k.summary FROM knowledge k WHERE CAST(k.id AS TEXT) = e.source_id), '')
		           ELSE
		               COALESCE((SELECT f.fact FROM facts f WHERE CAST(f.id AS TEXT) = e.source_id), '')
		       END AS description
		FROM entity_metadata e
		WHERE e.entity LIKE ?
	`
	args := []any{"%" + query + "%"}

	if entityType != "" {
		sqlStr += " AND e.entity_type = ?"
		args = append(args, entityType)
	}

	sqlStr += " ORDER BY e.id DESC LIMIT 10"

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, true, fmt.Errorf("memory: entity search: %w", err)
	}
	defer rows.Close()

	var hits []EntityHit
	for rows.Next() {
		var h EntityHit
		if err := rows.Scan(&h.Entity, &h.EntityType, &h.SourceType, &h.SourceID, &h.Description); err != nil {
			return nil, true, err
		}
		hits = append(hits, h)
	}
	return hits, true, rows.Err()
}
