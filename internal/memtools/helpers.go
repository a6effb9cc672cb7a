// Package memtools provides MCP tool handlers for the persistent memory
// store.
//
// Each tool handler follows the same pattern:
// - A struct holding the memory.Store, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools are storage tools: they receive assistant-generated content and
// persist or retrieve it. Argument problems come back as tool errors,
// never as Go errors, so the protocol stream stays healthy.
package memtools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringListArg extracts a list-of-strings argument. JSON arrays arrive
// as []any; anything else, including a list with non-string elements,
// yields nil so a sloppy caller degrades to "no list" instead of an error.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
