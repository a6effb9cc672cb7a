package memory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// maybeConsolidate submits a background consolidation job when the
// trailing window holds enough sessions. Fire-and-forget: it never
// blocks the caller and drops the job if one is already queued.
func (s *Store) maybeConsolidate() {
	threshold := s.cfg.ConsolidateAfter
	if threshold <= 0 {
		threshold = 10
	}
	window := s.cfg.ConsolidateWindow
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	var recent int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE created_at >= datetime('now', ?)`,
		fmt.Sprintf("-%d minutes", int(window.Minutes())),
	).Scan(&recent)
	if err != nil || recent < threshold {
		return
	}

	select {
	case s.jobs <- struct{}{}:
	default:
	}
}

// consolidateWorker drains background consolidation jobs until the
// store is closed. There is no result channel back to the caller.
func (s *Store) consolidateWorker() {
	defer s.wg.Done()
	for range s.jobs {
		if _, err := s.Consolidate(); err != nil {
			log.Error("memory: background consolidation failed", "err", err)
		}
	}
}

// Consolidate runs the idempotent maintenance pass: merge sessions with
// overlapping topics and deduplicate facts. Each merge/delete pair is
// committed as one transaction, so concurrent readers observe either
// the pre- or post-merge state.
func (s *Store) Consolidate() (*ConsolidateResult, error) {
	result := &ConsolidateResult{}

	merged, err := s.mergeSessions()
	if err != nil {
		return nil, err
	}
	result.SessionsMerged = merged

	removed, err := s.dedupFacts()
	if err != nil {
		return nil, err
	}
	result.FactsRemoved = removed

	return result, nil
}

type sessionMerge struct {
	absorberID string
	victimID   string
	summary    string // absorber's summary after this merge
}

// mergeSessions enumerates sessions newest-first and merges pairs whose
// topic overlap exceeds the configured threshold. The session seen
// earlier in the enumeration absorbs the other's summary; the absorbed
// session is deleted together with its derived entity rows.
func (s *Store) mergeSessions() (int, error) {
	rows, err := s.db.Query(
		`SELECT id, summary, topics FROM sessions ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return 0, fmt.Errorf("memory: consolidate: %w", err)
	}

	type candidate struct {
		id      string
		summary string
		topics  map[string]bool
	}
	var sessions []candidate
	for rows.Next() {
		var c candidate
		var rawTopics string
		if err := rows.Scan(&c.id, &c.summary, &rawTopics); err != nil {
			rows.Close()
			return 0, err
		}
		c.topics = topicSet(decodeList(rawTopics))
		sessions = append(sessions, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	threshold := s.cfg.TopicOverlapThreshold
	if threshold <= 0 {
		threshold = 0.5
	}

	doomed := make(map[string]bool)
	var merges []sessionMerge

	for i := range sessions {
		if doomed[sessions[i].id] {
			continue
		}
		for j := i + 1; j < len(sessions); j++ {
			if doomed[sessions[j].id] {
				continue
			}
			a, b := sessions[i].topics, sessions[j].topics
			if len(a) == 0 || len(b) == 0 {
				continue
			}
			overlap := 0
			for t := range a {
				if b[t] {
					overlap++
				}
			}
			minCount := len(a)
			if len(b) < minCount {
				minCount = len(b)
			}
			if float64(overlap)/float64(minCount) <= threshold {
				continue
			}

			sessions[i].summary = Normalize(sessions[i].summary + ". " + sessions[j].summary)
			doomed[sessions[j].id] = true
			merges = append(merges, sessionMerge{
				absorberID: sessions[i].id,
				victimID:   sessions[j].id,
				summary:    sessions[i].summary,
			})
		}
	}

	for _, m := range merges {
		if err := s.applyMerge(m); err != nil {
			return 0, err
		}
	}
	return len(merges), nil
}

// applyMerge commits one merge/delete pair atomically, then cleans up
// the secondary indexes. Secondary failures are tolerated — the primary
// update and delete have already committed.
func (s *Store) applyMerge(m sessionMerge) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("memory: merge: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`UPDATE sessions SET summary = ? WHERE id = ?`, m.summary, m.absorberID); err != nil {
		return fmt.Errorf("memory: merge: update absorber: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, m.victimID); err != nil {
		return fmt.Errorf("memory: merge: delete victim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("memory: merge: commit: %w", err)
	}

	s.deleteEntities("session", m.victimID)
	if _, err := s.execHook(s.db,
		`DELETE FROM memory_fts WHERE source_type = 'session' AND source_id = ?`, m.victimID,
	); err != nil {
		log.Debug("memory: merge: fts cleanup failed", "id", m.victimID, "err", err)
	}
	s.reindexContent("session", m.absorberID, m.summary)
	return nil
}

// dedupFacts removes facts that duplicate a longer fact in the same
// category. Equal texts or a substring relation count as duplicates;
// the shorter text loses, with the later-indexed fact losing on a tie.
func (s *Store) dedupFacts() (int, error) {
	rows, err := s.db.Query(`SELECT id, fact, category FROM facts ORDER BY id ASC`)
	if err != nil {
		return 0, fmt.Errorf("memory: dedup facts: %w", err)
	}

	type factRow struct {
		id       int64
		fact     string
		category string
	}
	var facts []factRow
	for rows.Next() {
		var f factRow
		if err := rows.Scan(&f.id, &f.fact, &f.category); err != nil {
			rows.Close()
			return 0, err
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	doomed := make(map[int64]bool)
	for i := range facts {
		for j := i + 1; j < len(facts); j++ {
			if facts[i].category != facts[j].category {
				continue
			}
			a, b := facts[i].fact, facts[j].fact
			if a != b && !strings.Contains(a, b) && !strings.Contains(b, a) {
				continue
			}
			if len(a) < len(b) {
				doomed[facts[i].id] = true
			} else {
				doomed[facts[j].id] = true
			}
		}
	}

	if len(doomed) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("memory: dedup facts: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for id := range doomed {
		if _, err := tx.Exec(`DELETE FROM facts WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("memory: dedup facts: delete %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("memory: dedup facts: commit: %w", err)
	}

	for id := range doomed {
		sourceID := strconv.FormatInt(id, 10)
		s.deleteEntities("fact", sourceID)
		if _, err := s.execHook(s.db,
			`DELETE FROM memory_fts WHERE source_type = 'fact' AND source_id = ?`, sourceID,
		); err != nil {
			log.Debug("memory: dedup: fts cleanup failed", "id", sourceID, "err", err)
		}
	}

	return len(doomed), nil
}

// topicSet trims and deduplicates a topic list.
func topicSet(topics []string) map[string]bool {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t != "" {
			set[t] = true
		}
	}
	return set
}
