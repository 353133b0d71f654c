package tools

import (
	"context"

	"github.com/HendryAvila/respec/internal/handler"
	"github.com/mark3labs/mcp-go/mcp"
)

// AddArtifactTool handles the respec_add_artifact MCP tool. It inserts
// nested artifact content (acceptance tests) into a host document. The new
// content keeps its provisional IDs until registered.
type AddArtifactTool struct {
	dispatch *handler.Dispatch
}

func NewAddArtifactTool(d *handler.Dispatch) *AddArtifactTool {
	return &AddArtifactTool{dispatch: d}
}

// Definition returns the MCP tool definition for registration.
func (t *AddArtifactTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_add_artifact",
		mcp.WithDescription(
			"Add a nested artifact (e.g. UACC or SACC) to a host document. "+
				"The content is inserted into the document's Acceptance Tests "+
				"section; register its provisional IDs afterwards with "+
				"respec_register_provisional_ids.",
		),
		mcp.WithString("parent_artifact_id",
			mcp.Required(),
			mcp.Description("Host document, e.g. \"PRD-1\"."),
		),
		mcp.WithString("new_artifact_type",
			mcp.Required(),
			mcp.Description("Nested artifact type, e.g. UACC or SACC."),
		),
		mcp.WithString("new_artifact_content",
			mcp.Required(),
			mcp.Description("Section content starting with its \"### TYPE-PROVISIONALn: name\" heading."),
		),
	)
}

// Handle processes the respec_add_artifact tool call.
func (t *AddArtifactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_artifact_id", "")
	newType := req.GetString("new_artifact_type", "")
	content := req.GetString("new_artifact_content", "")
	if parentID == "" || newType == "" || content == "" {
		return errorResult("'parent_artifact_id', 'new_artifact_type' and 'new_artifact_content' are required"), nil
	}

	msg, err := t.dispatch.AddNested(parentID, newType, content)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return mcp.NewToolResultText(msg), nil
}
