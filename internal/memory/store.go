// Package memory implements the persistent memory engine for Recall.
//
// It uses SQLite with FTS5 full-text search to store and retrieve
// session summaries, per-area knowledge and discrete facts from AI
// coding sessions, and serves them back via keyword, entity and
// vector-similarity search.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Session represents one unit of work: a summary plus the files touched,
// tools used and topics covered.
type Session struct {
	ID           string   `json:"id"`
	CreatedAt    string   `json:"created_at"`
	Summary      string   `json:"summary"`
	FilesTouched []string `json:"files_touched"`
	ToolsUsed    []string `json:"tools_used"`
	Topics       []string `json:"topics"`
}

// Knowledge is a durable summary of patterns about one code area,
// unique per area.
type Knowledge struct {
	ID        int64  `json:"id"`
	Area      string `json:"area"`
	Summary   string `json:"summary"`
	Patterns  string `json:"patterns,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// Fact is a short, atomic, categorized durable statement.
type Fact struct {
	ID        int64  `json:"id"`
	Fact      string `json:"fact"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
}

// SearchResult is one hit from keyword or vector search. For keyword
// search Score is the FTS5 rank (lower is better); for vector search
// it is the cosine similarity (higher is better).
type SearchResult struct {
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// EntityHit is one row from entity search, joined with a one-line
// description of the owning record.
type EntityHit struct {
	Entity      string `json:"entity"`
	EntityType  string `json:"entity_type"`
	SourceType  string `json:"source_type"`
	SourceID    string `json:"source_id"`
	Description string `json:"description"`
}

// Stats holds aggregate memory statistics.
type Stats struct {
	Sessions          int  `json:"sessions"`
	Knowledge         int  `json:"knowledge"`
	Facts             int  `json:"facts"`
	Entities          int  `json:"entities"`
	VectorEnabled     bool `json:"vector_enabled"`
	EmbeddedSessions  int  `json:"embedded_sessions"`
	EmbeddedKnowledge int  `json:"embedded_knowledge"`
	EmbeddedFacts     int  `json:"embedded_facts"`
	PendingEmbeddings int  `json:"pending_embeddings"`
}

// ConsolidateResult holds the outcome of a consolidation pass.
type ConsolidateResult struct {
	SessionsMerged int `json:"sessions_merged"`
	FactsRemoved   int `json:"facts_removed"`
}

// Embedder turns text into a fixed-length float vector. It is treated
// as a best-effort, unbounded-latency dependency: any error degrades
// vector search to keyword search, never the caller's operation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Provider() string
	Model() string
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds memory store configuration. Thresholds live here rather
// than as constants so callers can tune the heuristics.
type Config struct {
	// RepoRoot is the repository root the store belongs to. The database
	// lives at <RepoRoot>/.recall/memory.db unless DataDir overrides it.
	RepoRoot string
	DataDir  string

	MaxSearchResults int

	// SimilarityThreshold is the minimum cosine similarity for a vector
	// search hit to be returned.
	SimilarityThreshold float64

	// TopicOverlapThreshold is the minimum topic overlap ratio for two
	// sessions to be merged during consolidation.
	TopicOverlapThreshold float64

	// ConsolidateAfter triggers a background consolidation pass once this
	// many sessions were created inside ConsolidateWindow.
	ConsolidateAfter  int
	ConsolidateWindow time.Duration

	// Embedder is optional; without it vector search falls back to
	// keyword search and the embedding queue is never drained.
	Embedder Embedder
}

// DefaultConfig returns the default configuration for a store rooted at
// the given repository root.
func DefaultConfig(repoRoot string) Config {
	return Config{
		RepoRoot:              repoRoot,
		MaxSearchResults:      20,
		SimilarityThreshold:   0.3,
		TopicOverlapThreshold: 0.5,
		ConsolidateAfter:      10,
		ConsolidateWindow:     30 * 24 * time.Hour,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent memory engine backed by SQLite + FTS5.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks

	jobs      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// storeHooks allows tests to inject failures into secondary-index
// writes without touching the primary write path.
type storeHooks struct {
	exec func(db execer, query string, args ...any) (sql.Result, error)
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

// StorePath returns the store file location for a repository root.
func StorePath(repoRoot string) string {
	return filepath.Join(repoRoot, ".recall", "memory.db")
}

// Exists reports whether a store file already exists for the root.
func Exists(repoRoot string) bool {
	_, err := os.Stat(StorePath(repoRoot))
	return err == nil
}

// Open creates the data directory if needed, opens SQLite with WAL
// mode, runs the base schema migration and starts the background
// consolidation worker.
func Open(cfg Config) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(cfg.RepoRoot, ".recall")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, "memory.db"))
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, jobs: make(chan struct{}, 1)}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("memory: migration: %w", err)
	}

	s.wg.Add(1)
	go s.consolidateWorker()

	return s, nil
}

// Close stops the background worker and closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.jobs)
	})
	s.wg.Wait()
	return s.db.Close()
}

// ─── Schema ──────────────────────────────────────────────────────────────────

// Init creates the base schema if absent. Safe to call repeatedly.
func (s *Store) Init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			summary       TEXT NOT NULL,
			files_touched TEXT NOT NULL DEFAULT '[]',
			tools_used    TEXT NOT NULL DEFAULT '[]',
			topics        TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);

		CREATE TABLE IF NOT EXISTS knowledge (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			area       TEXT NOT NULL UNIQUE,
			summary    TEXT NOT NULL,
			patterns   TEXT,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS facts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			fact       TEXT NOT NULL,
			category   TEXT NOT NULL DEFAULT 'general',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_facts_category ON facts(category);

		CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
			content,
			source_type UNINDEXED,
			source_id   UNINDEXED
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InitMetadata creates the entity and relation tables if absent,
// bootstrapping the base schema first.
func (s *Store) InitMetadata() error {
	if err := s.Init(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entity_metadata (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			entity      TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			source_type TEXT NOT NULL,
			source_id   TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_entity_unique
			ON entity_metadata(entity, entity_type, source_type, source_id);
		CREATE INDEX IF NOT EXISTS idx_entity_name ON entity_metadata(entity);

		CREATE TABLE IF NOT EXISTS entry_relations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			from_type  TEXT NOT NULL,
			from_id    TEXT NOT NULL,
			to_type    TEXT NOT NULL,
			to_id      TEXT NOT NULL,
			relation   TEXT NOT NULL DEFAULT 'related_to',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_relation_unique
			ON entry_relations(from_type, from_id, to_type, to_id, relation);
	`)
	return err
}

// InitVector adds the embedding columns and the queue/meta tables if
// absent. Safe to call repeatedly.
func (s *Store) InitVector() error {
	if err := s.Init(); err != nil {
		return err
	}
	for _, table := range []string{"sessions", "knowledge", "facts"} {
		ok, err := s.hasColumn(table, "embedding")
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.db.Exec("ALTER TABLE " + table + " ADD COLUMN embedding BLOB"); err != nil {
				return err
			}
		}
	}
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS embedding_queue (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			source_type   TEXT NOT NULL,
			source_id     TEXT NOT NULL,
			content       TEXT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_pending
			ON embedding_queue(source_type, source_id) WHERE status = 'pending';

		CREATE TABLE IF NOT EXISTS vector_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// hasTable reports whether a table (or virtual table) exists.
func (s *Store) hasTable(name string) bool {
	var found string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE name = ?", name,
	).Scan(&found)
	return err == nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ─── Write operations ────────────────────────────────────────────────────────

// AddSession normalizes and stores a session summary, indexes it for
// search, extracts entities, and may trigger background consolidation.
// Secondary-index failures are swallowed: the session row is already
// committed by the time they run.
func (s *Store) AddSession(summary string, files, tools, topics []string) (string, error) {
	normalized := s.Normalize(summary)
	id := uuid.NewString()

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, summary, files_touched, tools_used, topics)
		 VALUES (?, ?, ?, ?, ?)`,
		id, normalized, encodeList(files), encodeList(tools), encodeList(topics),
	)
	if err != nil {
		return "", fmt.Errorf("memory: add session: %w", err)
	}

	s.indexContent("session", id, normalized)
	s.extractEntities("session", id, normalized, files)
	s.enqueueEmbedding("session", id, normalized)
	s.maybeConsolidate()

	return id, nil
}

// AddKnowledge upserts a knowledge entry keyed on area.
func (s *Store) AddKnowledge(area, summary, patterns string) (int64, error) {
	normalized := s.Normalize(summary)

	_, err := s.db.Exec(
		`INSERT INTO knowledge (area, summary, patterns, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(area) DO UPDATE SET
			summary    = excluded.summary,
			patterns   = excluded.patterns,
			updated_at = datetime('now')`,
		area, normalized, patterns,
	)
	if err != nil {
		return 0, fmt.Errorf("memory: add knowledge: %w", err)
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM knowledge WHERE area = ?", area).Scan(&id); err != nil {
		return 0, fmt.Errorf("memory: add knowledge: %w", err)
	}

	sourceID := strconv.FormatInt(id, 10)
	content := area + ": " + normalized
	if patterns != "" {
		content += " " + patterns
	}
	s.reindexContent("knowledge", sourceID, content)
	s.extractEntities("knowledge", sourceID, content, nil)
	s.enqueueEmbedding("knowledge", sourceID, content)

	return id, nil
}

// AddFact stores a categorized fact. An empty category defaults to
// "general".
func (s *Store) AddFact(fact, category string) (int64, error) {
	if category == "" {
		category = "general"
	}
	normalized := s.Normalize(fact)

	res, err := s.db.Exec(
		`INSERT INTO facts (fact, category) VALUES (?, ?)`,
		normalized, category,
	)
	if err != nil {
		return 0, fmt.Errorf("memory: add fact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("memory: add fact: %w", err)
	}

	sourceID := strconv.FormatInt(id, 10)
	s.indexContent("fact", sourceID, normalized)
	s.extractEntities("fact", sourceID, normalized, nil)
	s.enqueueEmbedding("fact", sourceID, normalized)

	return id, nil
}

// indexContent adds a row to the full-text index. Best-effort: a
// failure here never unwinds the primary write.
func (s *Store) indexContent(sourceType, sourceID, content string) {
	if _, err := s.execHook(s.db,
		`INSERT INTO memory_fts (content, source_type, source_id) VALUES (?, ?, ?)`,
		content, sourceType, sourceID,
	); err != nil {
		log.Debug("memory: fts index write failed", "source", sourceType, "id", sourceID, "err", err)
	}
}

// reindexContent replaces the indexed content for a record, used on
// knowledge upserts where stale text may still be indexed.
func (s *Store) reindexContent(sourceType, sourceID, content string) {
	if _, err := s.execHook(s.db,
		`DELETE FROM memory_fts WHERE source_type = ? AND source_id = ?`,
		sourceType, sourceID,
	); err != nil {
		log.Debug("memory: fts index delete failed", "source", sourceType, "id", sourceID, "err", err)
	}
	s.indexContent(sourceType, sourceID, content)
}

// ─── Read operations ─────────────────────────────────────────────────────────

// Recent returns the n most recent sessions, newest first.
func (s *Store) Recent(n int) ([]Session, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := s.db.Query(
		`SELECT id, created_at, summary, files_touched, tools_used, topics
		 FROM sessions
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: recent: %w", err)
	}
	defer rows.Close()

	var results []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sess)
	}
	return results, rows.Err()
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, summary, files_touched, tools_used, topics
		 FROM sessions WHERE id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	sess, err := scanSession(rows)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetKnowledge retrieves a knowledge entry by area.
func (s *Store) GetKnowledge(area string) (*Knowledge, error) {
	var k Knowledge
	var patterns sql.NullString
	err := s.db.QueryRow(
		`SELECT id, area, summary, patterns, updated_at FROM knowledge WHERE area = ?`, area,
	).Scan(&k.ID, &k.Area, &k.Summary, &patterns, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}
	k.Patterns = patterns.String
	return &k, nil
}

// Facts returns the n most recent facts, newest first.
func (s *Store) Facts(n int) ([]Fact, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := s.db.Query(
		`SELECT id, fact, category, created_at FROM facts
		 ORDER BY created_at DESC, id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: facts: %w", err)
	}
	defer rows.Close()

	var results []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.Fact, &f.Category, &f.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// Stats returns row counts, the vector-enablement flag and embedding
// coverage counts.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&st.Sessions)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM knowledge").Scan(&st.Knowledge)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM facts").Scan(&st.Facts)

	if s.hasTable("entity_metadata") {
		_ = s.db.QueryRow("SELECT COUNT(*) FROM entity_metadata").Scan(&st.Entities)
	}

	st.VectorEnabled = s.vectorEnabled()
	if s.hasTable("embedding_queue") {
		_ = s.db.QueryRow("SELECT COUNT(*) FROM embedding_queue WHERE status = 'pending'").Scan(&st.PendingEmbeddings)
	}
	if ok, _ := s.hasColumn("sessions", "embedding"); ok {
		_ = s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE embedding IS NOT NULL").Scan(&st.EmbeddedSessions)
		_ = s.db.QueryRow("SELECT COUNT(*) FROM knowledge WHERE embedding IS NOT NULL").Scan(&st.EmbeddedKnowledge)
		_ = s.db.QueryRow("SELECT COUNT(*) FROM facts WHERE embedding IS NOT NULL").Scan(&st.EmbeddedFacts)
	}

	return st, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var files, tools, topics string
	if err := row.Scan(&sess.ID, &sess.CreatedAt, &sess.Summary, &files, &tools, &topics); err != nil {
		return Session{}, err
	}
	sess.FilesTouched = decodeList(files)
	sess.ToolsUsed = decodeList(tools)
	sess.Topics = decodeList(topics)
	return sess, nil
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList parses a JSON string list. Malformed input is treated as
// an empty set, not an error.
func decodeList(raw string) []string {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "fix auth bug" → `"fix" "auth" "bug"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// Truncate shortens a string to max length with ellipsis.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
