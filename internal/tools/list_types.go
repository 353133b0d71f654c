package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/respec/internal/artifact"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTypesTool handles the respec_list_types MCP tool. It describes every
// registered artifact type and the status vocabulary.
type ListTypesTool struct {
	reg *artifact.Registry
}

func NewListTypesTool(reg *artifact.Registry) *ListTypesTool {
	return &ListTypesTool{reg: reg}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTypesTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_list_types",
		mcp.WithDescription(
			"List all valid artifact types with their capabilities, plus the "+
				"status vocabulary.",
		),
	)
}

// Handle processes the respec_list_types tool call.
func (t *ListTypesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("# Artifact Types\n\n")
	for _, ti := range t.reg.Types() {
		fmt.Fprintf(&b, "## %s — %s\n", ti.Code, ti.Name)
		if ti.Description != "" {
			fmt.Fprintf(&b, "%s\n", ti.Description)
		}
		fmt.Fprintf(&b, "- Header: `%s`\n", ti.HeaderFormat)
		fmt.Fprintf(&b, "- File-backed: %v, steps: %v, tool-updatable: %v\n",
			ti.IsFile, ti.HasSteps, ti.CanToolUpdate)
		if len(ti.AddableNestedTypes) > 0 {
			fmt.Fprintf(&b, "- Nested types: %s\n", strings.Join(ti.AddableNestedTypes, ", "))
		}
		if len(ti.ReferenceTypes) > 0 {
			fmt.Fprintf(&b, "- Reference types: %s\n", strings.Join(ti.ReferenceTypes, ", "))
		}
		if len(ti.StatusMoveStatuses) > 0 {
			fmt.Fprintf(&b, "- File moves on: %s\n", strings.Join(ti.StatusMoveStatuses, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Statuses\n\n")
	for _, code := range t.reg.ValidStatuses() {
		if info, ok := t.reg.StatusInfo(code); ok {
			fmt.Fprintf(&b, "- %s — %s\n", info.Code, info.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", code)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
