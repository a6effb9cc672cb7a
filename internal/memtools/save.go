package memtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recalldev/recall/internal/memory"
)

// SaveSessionTool handles the mem_save_session MCP tool.
type SaveSessionTool struct {
	store *memory.Store
}

// NewSaveSessionTool creates a SaveSessionTool with the given memory store.
func NewSaveSessionTool(store *memory.Store) *SaveSessionTool {
	return &SaveSessionTool{store: store}
}

// Definition returns the MCP tool definition for mem_save_session.
func (t *SaveSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_save_session",
		mcp.WithDescription(
			"Record a summary of the current working session. Call this at the end of significant work — "+
				"the summary, touched files, and topics become searchable memory for future sessions.",
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What happened this session, a few sentences"),
		),
		mcp.WithArray("files_touched",
			mcp.Description("Paths of files created or modified"),
		),
		mcp.WithArray("tools_used",
			mcp.Description("Names of tools or commands used"),
		),
		mcp.WithArray("topics",
			mcp.Description("Short topic tags (e.g. 'auth', 'migrations')"),
		),
	)
}

// Handle processes the mem_save_session tool call.
func (t *SaveSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary := req.GetString("summary", "")
	if summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}

	files := stringListArg(req, "files_touched")
	tools := stringListArg(req, "tools_used")
	topics := stringListArg(req, "topics")

	id, err := t.store.AddSession(summary, files, tools, topics)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save session: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session saved.\nID: %s", id)), nil
}

// ─── SaveKnowledgeTool ──────────────────────────────────────────────────────

// SaveKnowledgeTool handles the mem_save_knowledge MCP tool.
type SaveKnowledgeTool struct {
	store *memory.Store
}

// NewSaveKnowledgeTool creates a SaveKnowledgeTool.
func NewSaveKnowledgeTool(store *memory.Store) *SaveKnowledgeTool {
	return &SaveKnowledgeTool{store: store}
}

// Definition returns the MCP tool definition for mem_save_knowledge.
func (t *SaveKnowledgeTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_save_knowledge",
		mcp.WithDescription(
			"Save or update durable knowledge about an area of the codebase. "+
				"One record per area: saving again for the same area replaces the summary.",
		),
		mcp.WithString("area",
			mcp.Required(),
			mcp.Description("Area this knowledge belongs to (e.g. 'auth', 'billing')"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What is durably true about this area"),
		),
		mcp.WithString("patterns",
			mcp.Description("Conventions or patterns observed in this area"),
		),
	)
}

// Handle processes the mem_save_knowledge tool call.
func (t *SaveKnowledgeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	area := req.GetString("area", "")
	summary := req.GetString("summary", "")
	if area == "" {
		return mcp.NewToolResultError("'area' is required"), nil
	}
	if summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}

	id, err := t.store.AddKnowledge(area, summary, req.GetString("patterns", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save knowledge: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Knowledge saved for %q.\nID: %d", area, id)), nil
}

// ─── SaveFactTool ───────────────────────────────────────────────────────────

// SaveFactTool handles the mem_save_fact MCP tool.
type SaveFactTool struct {
	store *memory.Store
}

// NewSaveFactTool creates a SaveFactTool.
func NewSaveFactTool(store *memory.Store) *SaveFactTool {
	return &SaveFactTool{store: store}
}

// Definition returns the MCP tool definition for mem_save_fact.
func (t *SaveFactTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_save_fact",
		mcp.WithDescription(
			"Save a single atomic fact worth remembering (e.g. 'deploys go through ArgoCD'). "+
				"Keep facts short — near-duplicates get consolidated away later.",
		),
		mcp.WithString("fact",
			mcp.Required(),
			mcp.Description("The fact, one sentence"),
		),
		mcp.WithString("category",
			mcp.Description("Grouping category (default: general)"),
		),
	)
}

// Handle processes the mem_save_fact tool call.
func (t *SaveFactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fact := req.GetString("fact", "")
	if fact == "" {
		return mcp.NewToolResultError("'fact' is required"), nil
	}

	id, err := t.store.AddFact(fact, req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save fact: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Fact saved.\nID: %d", id)), nil
}
