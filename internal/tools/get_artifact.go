package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/respec/internal/repo"
	"github.com/mark3labs/mcp-go/mcp"
)

// GetArtifactTool handles the respec_get_artifact MCP tool. Files return
// their whole content; nested artifacts return their level-3 section.
type GetArtifactTool struct {
	repo *repo.Repository
}

func NewGetArtifactTool(r *repo.Repository) *GetArtifactTool {
	return &GetArtifactTool{repo: r}
}

// Definition returns the MCP tool definition for registration.
func (t *GetArtifactTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_get_artifact",
		mcp.WithDescription(
			"Get the full content of an artifact by document ID or artifact ID. "+
				"File artifacts return the whole file; nested artifacts return "+
				"their section.",
		),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Document ID (e.g. \"36\") or artifact ID (e.g. \"TASK-13\")."),
		),
	)
}

// Handle processes the respec_get_artifact tool call.
func (t *GetArtifactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	if identifier == "" {
		return errorResult("'identifier' is required"), nil
	}

	a, err := t.repo.Get(identifier)
	if err != nil {
		return errorResult("%v", err), nil
	}

	response := fmt.Sprintf("# Content for %s\n**Status:** %s\n**Name:** %s\n\n---\n\n%s",
		a.ID, a.Entry.Status, a.Entry.Name, a.Content)
	return mcp.NewToolResultText(response), nil
}
