package tools

import (
	"context"

	"github.com/HendryAvila/respec/internal/artifact"
	"github.com/HendryAvila/respec/internal/templates"
	"github.com/mark3labs/mcp-go/mcp"
)

// GetTemplateTool handles the respec_get_template MCP tool. It returns the
// authoring template for an artifact type.
type GetTemplateTool struct {
	reg *artifact.Registry
}

func NewGetTemplateTool(reg *artifact.Registry) *GetTemplateTool {
	return &GetTemplateTool{reg: reg}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTemplateTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_get_template",
		mcp.WithDescription(
			"Get the authoring template for an artifact type. Templates use "+
				"provisional IDs (e.g. PRD-PROVISIONAL1) that are replaced with "+
				"sequential IDs at finalization.",
		),
		mcp.WithString("artifact_type",
			mcp.Required(),
			mcp.Description("Artifact type code, e.g. PRD, TASKPRD, REQ, TASK, UACC, SACC."),
		),
	)
}

// Handle processes the respec_get_template tool call.
func (t *GetTemplateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	artifactType := req.GetString("artifact_type", "")
	if artifactType == "" {
		return errorResult("'artifact_type' is required"), nil
	}
	tpl, err := templates.Get(t.reg, artifactType)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return mcp.NewToolResultText(tpl), nil
}
