// Package server wires the memory store and MCP components together.
//
// This is the composition root: it creates concrete implementations
// and injects them into the tools that depend on them. No business
// logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/recalldev/recall/internal/embedder"
	"github.com/recalldev/recall/internal/memory"
	"github.com/recalldev/recall/internal/memtools"
	"github.com/recalldev/recall/internal/prompts"
	"github.com/recalldev/recall/internal/repo"
	"github.com/recalldev/recall/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all memory tools
// registered. The store is opened under the repository root containing
// the current working directory.
//
// The returned cleanup function closes the store's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call.
func New() (*server.MCPServer, func(), error) {
	store, err := OpenStore(repo.FindRootCwd())
	if err != nil {
		return nil, noop, fmt.Errorf("opening memory store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("memory store close", "error", err)
		}
	}

	s := server.NewMCPServer(
		"recall",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	registerMemoryTools(s, store)

	// --- Register prompts ---

	recap := prompts.NewRecapPrompt()
	s.AddPrompt(recap.Definition(), recap.Handle)

	wrapup := prompts.NewWrapupPrompt()
	s.AddPrompt(wrapup.Definition(), wrapup.Handle)

	// --- Register resources ---

	res := resources.NewHandler(store)
	s.AddResource(res.StatsResource(), res.HandleStats)
	s.AddResource(res.RecentResource(), res.HandleRecent)

	return s, cleanup, nil
}

// OpenStore opens the memory store for root with the default
// configuration. When a local Ollama server answers a quick heartbeat,
// its embedder is wired in so semantic search works; otherwise the
// store runs keyword-only. Embedder absence is never an error.
func OpenStore(root string) (*memory.Store, error) {
	cfg := memory.DefaultConfig(root)

	if emb, err := embedder.NewOllama(os.Getenv("RECALL_EMBED_MODEL")); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := emb.Ping(ctx); err == nil {
			cfg.Embedder = emb
		} else {
			log.Debug("ollama unreachable, semantic search disabled", "error", err)
		}
	}

	return memory.Open(cfg)
}

// noop is the default cleanup when store initialization failed.
func noop() {}

// registerMemoryTools registers all memory MCP tools with the server.
func registerMemoryTools(s *server.MCPServer, ms *memory.Store) {
	// --- Save ---
	saveSession := memtools.NewSaveSessionTool(ms)
	s.AddTool(saveSession.Definition(), saveSession.Handle)

	saveKnowledge := memtools.NewSaveKnowledgeTool(ms)
	s.AddTool(saveKnowledge.Definition(), saveKnowledge.Handle)

	saveFact := memtools.NewSaveFactTool(ms)
	s.AddTool(saveFact.Definition(), saveFact.Handle)

	// --- Query & retrieval ---
	search := memtools.NewSearchTool(ms)
	s.AddTool(search.Definition(), search.Handle)

	vsearch := memtools.NewSemanticSearchTool(ms)
	s.AddTool(vsearch.Definition(), vsearch.Handle)

	entities := memtools.NewEntitySearchTool(ms)
	s.AddTool(entities.Definition(), entities.Handle)

	memContext := memtools.NewContextTool(ms)
	s.AddTool(memContext.Definition(), memContext.Handle)

	recent := memtools.NewRecentTool(ms)
	s.AddTool(recent.Definition(), recent.Handle)

	// --- Management ---
	stats := memtools.NewStatsTool(ms)
	s.AddTool(stats.Definition(), stats.Handle)

	consolidate := memtools.NewConsolidateTool(ms)
	s.AddTool(consolidate.Definition(), consolidate.Handle)

	embed := memtools.NewEmbedTool(ms)
	s.AddTool(embed.Definition(), embed.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use the memory tools effectively.
func serverInstructions() string {
	return `You have access to recall, a persistent memory store for this repository.

## WHEN TO USE MEMORY

At the START of a session:
- Call mem_context with a short description of what you are about to work on.
  It returns recent facts, relevant knowledge, and related past sessions.
- Use mem_search or mem_vsearch when you need something specific
  ("have we touched the payment webhook before?").

DURING work:
- Save durable discoveries as you make them, don't wait to be asked:
  - mem_save_fact for atomic facts ("staging db is reset nightly")
  - mem_save_knowledge for per-area understanding (one record per area,
    saving again updates it)

At the END of significant work:
- Call mem_save_session with a summary, the files you touched, and topic tags.
  Topics drive later consolidation, pick consistent short tags.

## WHAT NOT TO SAVE

- Secrets, tokens, or credentials of any kind
- Transient state (current branch, uncommitted diffs)
- Anything already obvious from the code itself

Memory is consolidated automatically: sessions about the same topics get
merged and duplicate facts removed, so err on the side of saving.`
}
