package tools

import (
	"context"

	"github.com/HendryAvila/respec/internal/handler"
	"github.com/mark3labs/mcp-go/mcp"
)

// AddReferenceTool handles the respec_add_reference MCP tool. It records a
// cross-reference in the target's managed header, validating that the
// target type accepts references of the given type.
type AddReferenceTool struct {
	dispatch *handler.Dispatch
}

func NewAddReferenceTool(d *handler.Dispatch) *AddReferenceTool {
	return &AddReferenceTool{dispatch: d}
}

// Definition returns the MCP tool definition for registration.
func (t *AddReferenceTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_add_reference",
		mcp.WithDescription(
			"Add a cross-reference to an artifact's Referenced-by header, e.g. "+
				"record a TASKPRD in its parent PRD. The target type must allow "+
				"references of the referencing artifact's type.",
		),
		mcp.WithString("target_artifact_id",
			mcp.Required(),
			mcp.Description("Artifact receiving the reference, e.g. \"PRD-1\"."),
		),
		mcp.WithString("ref_artifact_id",
			mcp.Required(),
			mcp.Description("Artifact being referenced, e.g. \"TASKPRD-3\"."),
		),
	)
}

// Handle processes the respec_add_reference tool call.
func (t *AddReferenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetID := req.GetString("target_artifact_id", "")
	refID := req.GetString("ref_artifact_id", "")
	if targetID == "" || refID == "" {
		return errorResult("'target_artifact_id' and 'ref_artifact_id' are required"), nil
	}

	msg, err := t.dispatch.AddReference(targetID, refID)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return mcp.NewToolResultText(msg), nil
}
