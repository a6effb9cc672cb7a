package memory

import (
	"fmt"
)

// Search performs ranked full-text search over indexed session,
// knowledge and fact content. Results carry a highlighted snippet and
// are ordered by relevance. A non-positive limit defaults to 10.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.cfg.MaxSearchResults > 0 && limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT source_type, source_id,
		        snippet(memory_fts, 0, '[', ']', '…', 16),
		        rank
		 FROM memory_fts
		 WHERE memory_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		ftsQuery, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.SourceType, &r.SourceID, &r.Snippet, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
