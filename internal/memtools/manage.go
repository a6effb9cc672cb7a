package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recalldev/recall/internal/memory"
)

// StatsTool handles the mem_stats MCP tool.
type StatsTool struct {
	store *memory.Store
}

// NewStatsTool creates a StatsTool with the given memory store.
func NewStatsTool(store *memory.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for mem_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_stats",
		mcp.WithDescription("Show memory store statistics: record counts, entity count, and embedding coverage."),
	)
}

// Handle processes the mem_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.store.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("Memory statistics:\n\n")
	fmt.Fprintf(&b, "Sessions:  %d\n", st.Sessions)
	fmt.Fprintf(&b, "Knowledge: %d\n", st.Knowledge)
	fmt.Fprintf(&b, "Facts:     %d\n", st.Facts)
	fmt.Fprintf(&b, "Entities:  %d\n", st.Entities)
	if st.VectorEnabled {
		fmt.Fprintf(&b, "\nVector search: enabled\n")
		fmt.Fprintf(&b, "Embedded: %d sessions, %d knowledge, %d facts (%d pending)\n",
			st.EmbeddedSessions, st.EmbeddedKnowledge, st.EmbeddedFacts, st.PendingEmbeddings)
	} else {
		b.WriteString("\nVector search: disabled (keyword search only)\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── ConsolidateTool ────────────────────────────────────────────────────────

// ConsolidateTool handles the mem_consolidate MCP tool.
type ConsolidateTool struct {
	store *memory.Store
}

// NewConsolidateTool creates a ConsolidateTool.
func NewConsolidateTool(store *memory.Store) *ConsolidateTool {
	return &ConsolidateTool{store: store}
}

// Definition returns the MCP tool definition for mem_consolidate.
func (t *ConsolidateTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_consolidate",
		mcp.WithDescription(
			"Compact memory now: merge sessions with overlapping topics and drop duplicate facts. "+
				"Runs automatically in the background, call this to force a pass.",
		),
	)
}

// Handle processes the mem_consolidate tool call.
func (t *ConsolidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.store.Consolidate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("consolidation failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Consolidation done: %d sessions merged, %d duplicate facts removed.",
		res.SessionsMerged, res.FactsRemoved)), nil
}

// ─── EmbedTool ──────────────────────────────────────────────────────────────

// EmbedTool handles the mem_embed MCP tool.
type EmbedTool struct {
	store *memory.Store
}

// NewEmbedTool creates an EmbedTool.
func NewEmbedTool(store *memory.Store) *EmbedTool {
	return &EmbedTool{store: store}
}

// Definition returns the MCP tool definition for mem_embed.
func (t *EmbedTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_embed",
		mcp.WithDescription(
			"Compute embeddings for queued memory records so semantic search works. "+
				"Requires a running Ollama server.",
		),
	)
}

// Handle processes the mem_embed tool call.
func (t *EmbedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done, failed, err := t.store.Embed(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embedding run failed: %v", err)), nil
	}
	msg := fmt.Sprintf("Embedded %d records", done)
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed (kept with error status)", failed)
	}
	return mcp.NewToolResultText(msg + "."), nil
}
