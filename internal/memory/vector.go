package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"
)

// vectorEnabled reports whether the vector metadata marker is present.
// The marker is written by the first successful Embed run, not by
// InitVector, so an initialized-but-never-embedded store still falls
// back to keyword search.
func (s *Store) vectorEnabled() bool {
	if !s.hasTable("vector_meta") {
		return false
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM vector_meta").Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// enqueueEmbedding records a pending embedding-queue item for a newly
// written record. At most one pending item exists per source, and a
// re-write refreshes its content so the vector eventually stored
// reflects the latest text. Errors are swallowed since the queue is a
// secondary index.
func (s *Store) enqueueEmbedding(sourceType, sourceID, content string) {
	if !s.hasTable("embedding_queue") {
		return
	}
	if _, err := s.execHook(s.db,
		`INSERT INTO embedding_queue (source_type, source_id, content)
		 VALUES (?, ?, ?)
		 ON CONFLICT(source_type, source_id) WHERE status = 'pending'
			DO UPDATE SET content = excluded.content`,
		sourceType, sourceID, content,
	); err != nil {
		log.Debug("memory: embedding enqueue failed", "source", sourceType, "id", sourceID, "err", err)
	}
}

// Embed drains pending embedding-queue items through the configured
// embedder, writing vectors into the source rows. The first successful
// embedding performs the one-time vector metadata setup. Returns the
// number of items embedded and the number that errored.
func (s *Store) Embed(ctx context.Context) (done, failed int, err error) {
	if s.cfg.Embedder == nil {
		return 0, 0, fmt.Errorf("memory: embed: no embedder configured")
	}
	if err := s.InitVector(); err != nil {
		return 0, 0, err
	}

	rows, err := s.db.Query(
		`SELECT id, source_type, source_id, content
		 FROM embedding_queue WHERE status = 'pending' ORDER BY id ASC`,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("memory: embed: %w", err)
	}

	type queueItem struct {
		id         int64
		sourceType string
		sourceID   string
		content    string
	}
	var items []queueItem
	for rows.Next() {
		var it queueItem
		if err := rows.Scan(&it.id, &it.sourceType, &it.sourceID, &it.content); err != nil {
			rows.Close()
			return 0, 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, err
	}
	rows.Close()

	for _, it := range items {
		vec, embedErr := s.cfg.Embedder.Embed(ctx, it.content)
		if embedErr != nil {
			_, _ = s.db.Exec(
				`UPDATE embedding_queue SET status = 'error', error_message = ? WHERE id = ?`,
				embedErr.Error(), it.id,
			)
			failed++
			continue
		}

		if !s.vectorEnabled() {
			if err := s.writeVectorMeta(len(vec)); err != nil {
				return done, failed, err
			}
		}

		table, idArg, ok := sourceTable(it.sourceType, it.sourceID)
		if !ok {
			_, _ = s.db.Exec(
				`UPDATE embedding_queue SET status = 'error', error_message = ? WHERE id = ?`,
				"unknown source type "+it.sourceType, it.id,
			)
			failed++
			continue
		}

		if _, err := s.db.Exec(
			"UPDATE "+table+" SET embedding = ? WHERE id = ?", encodeVector(vec), idArg,
		); err != nil {
			return done, failed, fmt.Errorf("memory: embed: store vector: %w", err)
		}
		if _, err := s.db.Exec(
			`UPDATE embedding_queue SET status = 'done' WHERE id = ?`, it.id,
		); err != nil {
			return done, failed, fmt.Errorf("memory: embed: mark done: %w", err)
		}
		done++
	}

	return done, failed, nil
}

// writeVectorMeta performs the one-time vector setup: provider, model,
// dimension and schema version.
func (s *Store) writeVectorMeta(dimension int) error {
	meta := map[string]string{
		"provider":  s.cfg.Embedder.Provider(),
		"model":     s.cfg.Embedder.Model(),
		"dimension": strconv.Itoa(dimension),
		"version":   "1",
	}
	for k, v := range meta {
		if _, err := s.db.Exec(
			`INSERT INTO vector_meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, v,
		); err != nil {
			return fmt.Errorf("memory: vector meta: %w", err)
		}
	}
	return nil
}

// VSearch performs semantic search over stored embeddings. Without the
// vector metadata marker, or when the embedder is missing or fails, it
// transparently delegates to keyword search with the same signature and
// result shape. A non-positive limit defaults to 5.
func (s *Store) VSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if !s.vectorEnabled() || s.cfg.Embedder == nil {
		return s.Search(query, limit)
	}

	queryVec, err := s.cfg.Embedder.Embed(ctx, query)
	if err != nil {
		log.Debug("memory: embedder unavailable, falling back to keyword search", "err", err)
		return s.Search(query, limit)
	}

	threshold := s.cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = 0.3
	}

	var results []SearchResult
	for _, src := range []struct {
		sourceType string
		query      string
	}{
		{"session", `SELECT id, summary, embedding FROM sessions WHERE embedding IS NOT NULL`},
		{"knowledge", `SELECT CAST(id AS TEXT), area || ': ' || summary, embedding FROM knowledge WHERE embedding IS NOT NULL`},
		{"fact", `SELECT CAST(id AS TEXT), fact, embedding FROM facts WHERE embedding IS NOT NULL`},
	} {
		hits, err := s.scoreRows(src.sourceType, src.query, queryVec, threshold)
		if err != nil {
			return nil, err
		}
		results = append(results, hits...)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) scoreRows(sourceType, query string, queryVec []float32, threshold float64) ([]SearchResult, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("memory: vsearch: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var id, content string
		var blob []byte
		if err := rows.Scan(&id, &content, &blob); err != nil {
			return nil, err
		}
		score := cosineSimilarity(queryVec, decodeVector(blob))
		if score <= threshold {
			continue
		}
		results = append(results, SearchResult{
			SourceType: sourceType,
			SourceID:   id,
			Snippet:    Truncate(content, 200),
			Score:      score,
		})
	}
	return results, rows.Err()
}

// sourceTable maps a queue source type to its table and typed id
// argument for parameterized queries.
func sourceTable(sourceType, sourceID string) (table string, id any, ok bool) {
	switch sourceType {
	case "session":
		return "sessions", sourceID, true
	case "knowledge", "fact":
		n, err := strconv.ParseInt(sourceID, 10, 64)
		if err != nil {
			return "", nil, false
		}
		if sourceType == "knowledge" {
			return "knowledge", n, true
		}
		return "facts", n, true
	default:
		return "", nil, false
	}
}

// ─── Vector encoding ─────────────────────────────────────────────────────────

// encodeVector serializes a vector as fixed-width little-endian 32-bit
// floats.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Truncated trailing bytes
// are dropped.
func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}

// cosineSimilarity returns a value between -1 and 1, where 1 means
// identical direction. Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
