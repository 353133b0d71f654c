package tools

import (
	"context"
	"sort"

	"github.com/HendryAvila/respec/internal/repo"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchByIDTool handles the respec_search_artifacts MCP tool. It resolves
// an identifier to its index entry and optionally lists every artifact
// whose content mentions that ID.
type SearchByIDTool struct {
	repo *repo.Repository
}

func NewSearchByIDTool(r *repo.Repository) *SearchByIDTool {
	return &SearchByIDTool{repo: r}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchByIDTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_search_artifacts",
		mcp.WithDescription(
			"Find an artifact by document ID (integer) or artifact ID (e.g. "+
				"PRD-1). Returns the direct index match and, unless disabled, "+
				"every artifact whose content references the ID.",
		),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Document ID (e.g. \"36\") or artifact ID (e.g. \"REQ-7\")."),
		),
		mcp.WithBoolean("search_references",
			mcp.Description("Also scan artifact content for mentions of the ID. Default true."),
		),
	)
}

type artifactSummary struct {
	ArtifactID string `json:"artifact_id"`
	DocID      int    `json:"doc_id"`
	Name       string `json:"name"`
	Status     string `json:"status,omitempty"`
	Parent     string `json:"parent,omitempty"`
	IsFile     bool   `json:"is_file"`
}

type contentReference struct {
	ArtifactID string   `json:"artifact_id"`
	Mentions   []string `json:"mentions"`
}

// Handle processes the respec_search_artifacts tool call.
func (t *SearchByIDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	if identifier == "" {
		return errorResult("'identifier' is required"), nil
	}
	searchRefs := boolArg(req, "search_references", true)

	artifactID, err := t.repo.ResolveIdentifier(identifier)
	if err != nil {
		return errorResult("no artifact found for identifier %q: %v", identifier, err), nil
	}
	entry, ok, err := t.repo.Index().ByArtifactID(artifactID)
	if err != nil || !ok {
		return errorResult("artifact %s not found in index", artifactID), nil
	}

	response := struct {
		Identifier        string             `json:"identifier"`
		DirectMatch       artifactSummary    `json:"direct_match"`
		ContentReferences []contentReference `json:"content_references,omitempty"`
	}{
		Identifier: identifier,
		DirectMatch: artifactSummary{
			ArtifactID: entry.ArtifactID,
			DocID:      entry.DocID,
			Name:       entry.Name,
			Status:     entry.Status,
			Parent:     entry.Parent,
			IsFile:     entry.IsFile,
		},
	}

	if searchRefs {
		refs, err := t.repo.ScanContentReferences(artifactID)
		if err != nil {
			return errorResult("scanning references for %s: %v", artifactID, err), nil
		}
		for _, container := range sortedRefKeys(refs) {
			response.ContentReferences = append(response.ContentReferences, contentReference{
				ArtifactID: container,
				Mentions:   refs[container],
			})
		}
	}
	return jsonResult(response)
}

func sortedRefKeys(refs map[string][]string) []string {
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
