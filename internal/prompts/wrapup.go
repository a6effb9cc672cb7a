package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// WrapupPrompt handles the recall-wrapup MCP prompt.
// It instructs the AI to persist what the session learned before ending.
type WrapupPrompt struct{}

// NewWrapupPrompt creates a WrapupPrompt.
func NewWrapupPrompt() *WrapupPrompt {
	return &WrapupPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *WrapupPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("recall-wrapup",
		mcp.WithPromptDescription(
			"Save this session to memory before ending. "+
				"Records a summary, touched files, topics, and any durable discoveries.",
		),
	)
}

// Handle processes the recall-wrapup prompt request.
func (p *WrapupPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Save session to memory",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"We're wrapping up. Please persist what this session learned:\n\n" +
						"1. Run `mem_save_session` with a 2-3 sentence summary, the files we touched, and short topic tags\n" +
						"2. Save any durable discoveries with `mem_save_fact` (one sentence each)\n" +
						"3. If we built lasting understanding of a code area, update it with `mem_save_knowledge`\n" +
						"4. Don't save secrets, transient state, or things obvious from the code",
				),
			},
		},
	}, nil
}
