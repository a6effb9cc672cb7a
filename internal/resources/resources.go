// Package resources implements MCP resource handlers for the memory store.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (recall://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recalldev/recall/internal/memory"
)

// Handler manages memory resource endpoints.
type Handler struct {
	store *memory.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *memory.Store) *Handler {
	return &Handler{store: store}
}

// StatsResource returns the MCP resource definition for memory statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"recall://memory/stats",
		"Memory Statistics",
		mcp.WithResourceDescription("Record counts, entity count, and embedding coverage"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns current store statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.store.Stats()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// RecentResource returns the MCP resource definition for recent sessions.
func (h *Handler) RecentResource() mcp.Resource {
	return mcp.NewResource(
		"recall://memory/recent",
		"Recent Sessions",
		mcp.WithResourceDescription("The most recently recorded sessions, newest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRecent returns the latest sessions as JSON.
func (h *Handler) HandleRecent(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions, err := h.store.Recent(5)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling sessions: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
