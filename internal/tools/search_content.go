package tools

import (
	"context"

	"github.com/HendryAvila/respec/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchContentTool handles the respec_search_content MCP tool: ranked
// full-text search over artifact content. The index is rebuilt before each
// query so results always reflect the repository on disk.
type SearchContentTool struct {
	index *search.Index
}

func NewSearchContentTool(x *search.Index) *SearchContentTool {
	return &SearchContentTool{index: x}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchContentTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_search_content",
		mcp.WithDescription(
			"Full-text search across all artifact content, ranked by "+
				"relevance, with a snippet per hit.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms. Words are matched verbatim; operators are not interpreted."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results. Default 10."),
		),
	)
}

// Handle processes the respec_search_content tool call.
func (t *SearchContentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return errorResult("'query' is required"), nil
	}
	limit := int(req.GetFloat("limit", 10))

	if _, err := t.index.Reindex(); err != nil {
		return errorResult("rebuilding search index: %v", err), nil
	}
	results, err := t.index.Search(query, limit)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matches for: " + query), nil
	}

	return jsonResult(struct {
		Query   string          `json:"query"`
		Count   int             `json:"count"`
		Results []search.Result `json:"results"`
	}{query, len(results), results})
}
