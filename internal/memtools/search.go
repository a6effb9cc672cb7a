package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recalldev/recall/internal/memory"
)

// SearchTool handles the mem_search MCP tool (keyword full-text search).
type SearchTool struct {
	store *memory.Store
}

// NewSearchTool creates a SearchTool with the given memory store.
func NewSearchTool(store *memory.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for mem_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_search",
		mcp.WithDescription(
			"Keyword search across saved sessions, knowledge, and facts. "+
				"Use before starting work to recall what previous sessions learned.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to search for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 10)"),
		),
	)
}

// Handle processes the mem_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	results, err := t.store.Search(query, intArg(req, "limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResults(query, results)), nil
}

// ─── SemanticSearchTool ─────────────────────────────────────────────────────

// SemanticSearchTool handles the mem_vsearch MCP tool. It ranks by
// embedding similarity and silently degrades to keyword search when no
// vectors are available.
type SemanticSearchTool struct {
	store *memory.Store
}

// NewSemanticSearchTool creates a SemanticSearchTool.
func NewSemanticSearchTool(store *memory.Store) *SemanticSearchTool {
	return &SemanticSearchTool{store: store}
}

// Definition returns the MCP tool definition for mem_vsearch.
func (t *SemanticSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_vsearch",
		mcp.WithDescription(
			"Semantic search across memory using embeddings. Finds related content even when "+
				"the words differ. Falls back to keyword search if embeddings are unavailable.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 5)"),
		),
	)
}

// Handle processes the mem_vsearch tool call.
func (t *SemanticSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	results, err := t.store.VSearch(ctx, query, intArg(req, "limit", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("semantic search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResults(query, results)), nil
}

// ─── EntitySearchTool ───────────────────────────────────────────────────────

// EntitySearchTool handles the mem_entities MCP tool.
type EntitySearchTool struct {
	store *memory.Store
}

// NewEntitySearchTool creates an EntitySearchTool.
func NewEntitySearchTool(store *memory.Store) *EntitySearchTool {
	return &EntitySearchTool{store: store}
}

// Definition returns the MCP tool definition for mem_entities.
func (t *EntitySearchTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_entities",
		mcp.WithDescription(
			"Look up file paths, CamelCase concepts, and package names mentioned in memory. "+
				"Useful for 'where have we touched X before' questions.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Entity name or fragment (e.g. 'middleware.ts', 'DataStore')"),
		),
		mcp.WithString("type",
			mcp.Description("Restrict to an entity type: file, concept, or package"),
		),
	)
}

// Handle processes the mem_entities tool call.
func (t *EntitySearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	hits, ok, err := t.store.EntitySearch(query, req.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity search failed: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultText("Entity index not initialized. Run 'recall init' to enable entity tracking."), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No entities matching %q.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Entities matching %q:\n\n", query)
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s (%s, from %s)", h.Entity, h.EntityType, h.SourceType)
		if h.Description != "" {
			fmt.Fprintf(&b, ": %s", memory.Truncate(h.Description, 120))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// formatResults renders search hits as a readable list.
func formatResults(query string, results []memory.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Results for %q:\n\n", query)
	for _, r := range results {
		fmt.Fprintf(&b, "- (%s #%s) %s\n", r.SourceType, r.SourceID, r.Snippet)
	}
	return b.String()
}
