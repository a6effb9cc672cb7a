package memory

import (
	"fmt"
	"strings"
)

// charsPerToken approximates the character cost of one token when
// converting a token budget into a character budget.
const charsPerToken = 4

// Context assembles a bounded-size text blob for downstream injection:
// recent facts, knowledge areas matching the query, recent session
// summaries and keyword-search snippets, in that priority order. The
// result is hard-truncated to tokenLimit × 4 characters. An empty store
// yields an empty string, not an error.
func (s *Store) Context(query string, tokenLimit int) (string, error) {
	if tokenLimit <= 0 {
		tokenLimit = 1500
	}
	budget := tokenLimit * charsPerToken

	var b strings.Builder

	facts, err := s.Facts(5)
	if err != nil {
		return "", err
	}
	if len(facts) > 0 {
		b.WriteString("## Facts\n")
		for _, f := range facts {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Fact)
		}
		b.WriteString("\n")
	}

	knowledge, err := s.matchKnowledge(query, 3)
	if err != nil {
		return "", err
	}
	if len(knowledge) > 0 {
		b.WriteString("## Knowledge\n")
		for _, k := range knowledge {
			fmt.Fprintf(&b, "- %s: %s\n", k.Area, k.Summary)
		}
		b.WriteString("\n")
	}

	sessions, err := s.Recent(3)
	if err != nil {
		return "", err
	}
	if len(sessions) > 0 {
		b.WriteString("## Recent Sessions\n")
		for _, sess := range sessions {
			fmt.Fprintf(&b, "- %s: %s\n", sess.CreatedAt, sess.Summary)
		}
		b.WriteString("\n")
	}

	hits, err := s.Search(query, 5)
	if err != nil {
		return "", err
	}
	if len(hits) > 0 {
		b.WriteString("## Related\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "- (%s) %s\n", h.SourceType, h.Snippet)
		}
	}

	out := b.String()
	if len(out) > budget {
		out = out[:budget]
	}
	return out, nil
}

// matchKnowledge returns knowledge areas whose area or summary contains
// the query, most recently updated first.
func (s *Store) matchKnowledge(query string, limit int) ([]Knowledge, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT id, area, summary, COALESCE(patterns, ''), updated_at
		 FROM knowledge
		 WHERE area LIKE ? OR summary LIKE ?
		 ORDER BY updated_at DESC, id DESC
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: match knowledge: %w", err)
	}
	defer rows.Close()

	var results []Knowledge
	for rows.Next() {
		var k Knowledge
		if err := rows.Scan(&k.ID, &k.Area, &k.Summary, &k.Patterns, &k.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, k)
	}
	return results, rows.Err()
}
