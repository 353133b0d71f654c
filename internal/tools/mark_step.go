package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/respec/internal/handler"
	"github.com/mark3labs/mcp-go/mcp"
)

// MarkStepDoneTool handles the respec_mark_step_done MCP tool. It flips a
// numbered checkbox step from open to done in a task or acceptance test.
type MarkStepDoneTool struct {
	dispatch *handler.Dispatch
}

func NewMarkStepDoneTool(d *handler.Dispatch) *MarkStepDoneTool {
	return &MarkStepDoneTool{dispatch: d}
}

// Definition returns the MCP tool definition for registration.
func (t *MarkStepDoneTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_mark_step_done",
		mcp.WithDescription(
			"Mark a step as done in an artifact with steps (TASK, UACC, SACC). "+
				"Changes the \"[ ] <step>\" checkbox to \"[x]\".",
		),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Document ID or artifact ID, e.g. \"TASK-8\"."),
		),
		mcp.WithString("step_number",
			mcp.Required(),
			mcp.Description("Step number as written in the checkbox, e.g. \"8.2\"."),
		),
	)
}

// Handle processes the respec_mark_step_done tool call.
func (t *MarkStepDoneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	stepNumber := req.GetString("step_number", "")
	if identifier == "" || stepNumber == "" {
		return errorResult("'identifier' and 'step_number' are required"), nil
	}

	if err := t.dispatch.MarkStepDone(identifier, stepNumber); err != nil {
		return errorResult("%v", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Marked step %s done in %s", stepNumber, identifier)), nil
}
