// Package prompts implements MCP prompt handlers for the memory store.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// RecapPrompt handles the recall-recap MCP prompt.
// It guides the AI to load relevant memory at the start of a session.
type RecapPrompt struct{}

// NewRecapPrompt creates a RecapPrompt.
func NewRecapPrompt() *RecapPrompt {
	return &RecapPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *RecapPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("recall-recap",
		mcp.WithPromptDescription(
			"Load what previous sessions learned before starting work. "+
				"Pulls facts, knowledge, and related sessions from memory for a topic.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What you're about to work on (e.g. 'auth refactor')"),
		),
	)
}

// Handle processes the recall-recap prompt request.
func (p *RecapPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := "the current task"
	if args := req.Params.Arguments; args != nil {
		if t, ok := args["topic"]; ok && t != "" {
			topic = t
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Recap memory for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I'm about to work on '%s'.\n\n"+
						"Please:\n"+
						"1. Run `mem_context` with query='%s' to pull relevant memory\n"+
						"2. Run `mem_entities` for any files or concepts I mention\n"+
						"3. Summarize what past sessions already learned so we don't redo it\n"+
						"4. Flag anything in memory that contradicts what you see in the code",
					topic, topic,
				)),
			},
		},
	}, nil
}
