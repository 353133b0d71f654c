package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the respec-status MCP prompt.
// It instructs the AI to read and present the repository's current state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("respec-status",
		mcp.WithPromptDescription(
			"Check the current state of the artifact repository. "+
				"Shows artifact counts, in-flight work, and what to do next.",
		),
	)
}

// Handle processes the respec-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Artifact Repository Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please read the `respec://repository/status` resource to check the artifact repository.\n\n" +
						"Then:\n" +
						"1. Summarize artifact counts by type and status\n" +
						"2. Run `respec_search_by_type` for TASK with status='ACTIVE,TESTING' to list in-flight work\n" +
						"3. Highlight any REQ artifacts without implementing tasks or covering tests\n" +
						"4. Tell me what I should work on next",
				),
			},
		},
	}, nil
}
