package tools

import (
	"context"
	"errors"

	"github.com/HendryAvila/respec/internal/repo"
	"github.com/mark3labs/mcp-go/mcp"
)

// UpdateArtifactTool handles the respec_update_artifact MCP tool. It
// replaces an artifact's content, subject to the type's tool-update
// capability: PRD and TASKPRD files are engine-managed and rejected here.
type UpdateArtifactTool struct {
	repo *repo.Repository
}

func NewUpdateArtifactTool(r *repo.Repository) *UpdateArtifactTool {
	return &UpdateArtifactTool{repo: r}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateArtifactTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_update_artifact",
		mcp.WithDescription(
			"Replace the content of an artifact. Only types marked "+
				"tool-updatable accept this; document files (PRD, TASKPRD) are "+
				"maintained through status and finalization operations instead.",
		),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Document ID or artifact ID of the artifact to update."),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The new artifact content, including its heading line."),
		),
	)
}

// Handle processes the respec_update_artifact tool call.
func (t *UpdateArtifactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	content := req.GetString("content", "")
	if identifier == "" {
		return errorResult("'identifier' is required"), nil
	}
	if content == "" {
		return errorResult("'content' is required"), nil
	}

	a, err := t.repo.Update(identifier, content)
	if err != nil {
		if errors.Is(err, repo.ErrUpdateNotAllowed) {
			return errorResult("%v. Use status updates or finalization for this type", err), nil
		}
		return errorResult("%v", err), nil
	}
	return mcp.NewToolResultText("Updated " + a.ID), nil
}
