// Package prompts implements MCP prompt handlers for the artifact
// repository.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DraftPrompt handles the respec-draft MCP prompt.
// It guides the AI through drafting and finalizing a new artifact document.
type DraftPrompt struct{}

// NewDraftPrompt creates a DraftPrompt.
func NewDraftPrompt() *DraftPrompt {
	return &DraftPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *DraftPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("respec-draft",
		mcp.WithPromptDescription(
			"Draft a new artifact document (PRD or TASKPRD). "+
				"Guides you from template to a finalized document with "+
				"real sequential IDs.",
		),
		mcp.WithArgument("artifact_type",
			mcp.ArgumentDescription("Type of document to draft: PRD or TASKPRD. Default: PRD"),
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the document is about"),
		),
	)
}

// Handle processes the respec-draft prompt request.
func (p *DraftPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	artifactType := "PRD"
	if args := req.Params.Arguments; args != nil {
		if t, ok := args["artifact_type"]; ok && t != "" {
			artifactType = strings.ToUpper(strings.TrimSpace(t))
		}
	}

	topic := "a new feature"
	if args := req.Params.Arguments; args != nil {
		if t, ok := args["topic"]; ok && t != "" {
			topic = t
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a %s: %s", artifactType, topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to draft a new %s about '%s'.\n\n"+
						"Please:\n"+
						"1. Run `respec_get_template` with artifact_type='%s'\n"+
						"2. Ask me about the content, then fill in the template — keep "+
						"every PROVISIONAL placeholder ID exactly as it is\n"+
						"3. Save the draft into the provisional store directory\n"+
						"4. When I confirm the draft is ready, run `respec_finalize` with "+
						"the draft's file name and a short file name suffix\n"+
						"5. Show me the assigned ID mappings from the response",
					artifactType, topic, artifactType,
				)),
			},
		},
	}, nil
}
