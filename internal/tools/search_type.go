package tools

import (
	"context"

	"github.com/HendryAvila/respec/internal/repo"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchByTypeTool handles the respec_search_by_type MCP tool. It filters
// index entries by artifact type, with optional status and parent filters.
type SearchByTypeTool struct {
	repo *repo.Repository
}

func NewSearchByTypeTool(r *repo.Repository) *SearchByTypeTool {
	return &SearchByTypeTool{repo: r}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchByTypeTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_search_by_type",
		mcp.WithDescription(
			"List artifacts of a given type. Optionally filter by status "+
				"(comma-separated list, case-insensitive) and by parent artifact ID.",
		),
		mcp.WithString("artifact_type",
			mcp.Required(),
			mcp.Description("Artifact type code, e.g. REQ."),
		),
		mcp.WithString("status",
			mcp.Description("Status filter, e.g. \"NEW\" or \"NEW,ACTIVE\"."),
		),
		mcp.WithString("parent",
			mcp.Description("Parent artifact ID filter, e.g. \"PRD-1\"."),
		),
	)
}

// Handle processes the respec_search_by_type tool call.
func (t *SearchByTypeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	artifactType := req.GetString("artifact_type", "")
	if artifactType == "" {
		return errorResult("'artifact_type' is required"), nil
	}
	status := req.GetString("status", "")
	parent := req.GetString("parent", "")

	entries, err := t.repo.SearchByType(artifactType, status, parent)
	if err != nil {
		return errorResult("%v", err), nil
	}

	matches := make([]artifactSummary, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, artifactSummary{
			ArtifactID: e.ArtifactID,
			DocID:      e.DocID,
			Name:       e.Name,
			Status:     e.Status,
			Parent:     e.Parent,
			IsFile:     e.IsFile,
		})
	}

	return jsonResult(struct {
		ArtifactType string            `json:"artifact_type"`
		Status       string            `json:"status,omitempty"`
		Parent       string            `json:"parent,omitempty"`
		Count        int               `json:"count"`
		Matches      []artifactSummary `json:"matches"`
	}{artifactType, status, parent, len(matches), matches})
}
