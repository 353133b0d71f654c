package tools

import (
	"context"

	"github.com/HendryAvila/respec/internal/handler"
	"github.com/mark3labs/mcp-go/mcp"
)

// UpdateStatusTool handles the respec_update_status MCP tool. Status
// changes run through the artifact type's strategy, which also propagates
// annotations to related artifacts.
type UpdateStatusTool struct {
	dispatch *handler.Dispatch
}

func NewUpdateStatusTool(d *handler.Dispatch) *UpdateStatusTool {
	return &UpdateStatusTool{dispatch: d}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_update_status",
		mcp.WithDescription(
			"Update an artifact's status in the index and in its content "+
				"header. Type-specific side effects apply: completed documents "+
				"move to a status directory, task statuses are annotated in the "+
				"requirements they implement, test statuses in the requirements "+
				"they cover.",
		),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Document ID or artifact ID."),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status, e.g. NEW, ACTIVE, COMPLETED."),
		),
	)
}

// Handle processes the respec_update_status tool call.
func (t *UpdateStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	status := req.GetString("status", "")
	if identifier == "" || status == "" {
		return errorResult("'identifier' and 'status' are required"), nil
	}

	rep, err := t.dispatch.UpdateArtifactStatus(identifier, status)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Success    bool     `json:"success"`
		ArtifactID string   `json:"artifact_id"`
		Status     string   `json:"status"`
		Updates    []string `json:"updates"`
	}{rep.Success, rep.ArtifactID, rep.Status, rep.Messages})
}
