package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recalldev/recall/internal/memory"
)

// ContextTool handles the mem_context MCP tool.
type ContextTool struct {
	store *memory.Store
}

// NewContextTool creates a ContextTool with the given memory store.
func NewContextTool(store *memory.Store) *ContextTool {
	return &ContextTool{store: store}
}

// Definition returns the MCP tool definition for mem_context.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_context",
		mcp.WithDescription(
			"Assemble a markdown context block from memory for the start of a session: "+
				"recent facts, relevant knowledge, recent sessions, and search hits, within a token budget.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What the session is about, used to pick relevant memory"),
		),
		mcp.WithNumber("token_limit",
			mcp.Description("Approximate token budget for the block (default 1500)"),
		),
	)
}

// Handle processes the mem_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	out, err := t.store.Context(query, intArg(req, "token_limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context assembly failed: %v", err)), nil
	}
	if out == "" {
		return mcp.NewToolResultText("Memory is empty, nothing to assemble yet."), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ─── RecentTool ─────────────────────────────────────────────────────────────

// RecentTool handles the mem_recent MCP tool.
type RecentTool struct {
	store *memory.Store
}

// NewRecentTool creates a RecentTool.
func NewRecentTool(store *memory.Store) *RecentTool {
	return &RecentTool{store: store}
}

// Definition returns the MCP tool definition for mem_recent.
func (t *RecentTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_recent",
		mcp.WithDescription(
			"List the most recent recorded sessions, newest first. "+
				"A quick 'what happened lately' without searching.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return (default 5)"),
		),
	)
}

// Handle processes the mem_recent tool call.
func (t *RecentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := t.store.Recent(intArg(req, "limit", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing sessions failed: %v", err)), nil
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No sessions recorded yet."), nil
	}

	var b strings.Builder
	b.WriteString("Recent sessions:\n\n")
	for _, s := range sessions {
		fmt.Fprintf(&b, "- [%s] %s", s.CreatedAt, s.Summary)
		if len(s.Topics) > 0 {
			fmt.Fprintf(&b, " (topics: %s)", strings.Join(s.Topics, ", "))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
