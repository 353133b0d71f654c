package tools

import (
	"context"
	"path/filepath"

	"github.com/HendryAvila/respec/internal/resolver"
	"github.com/mark3labs/mcp-go/mcp"
)

// FinalizeTool handles the respec_finalize MCP tool. It converts a draft
// from the provisional store into a registered document in the repository.
type FinalizeTool struct {
	resolver *resolver.Resolver
}

func NewFinalizeTool(rv *resolver.Resolver) *FinalizeTool {
	return &FinalizeTool{resolver: rv}
}

// Definition returns the MCP tool definition for registration.
func (t *FinalizeTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_finalize",
		mcp.WithDescription(
			"Finalize a provisional draft: assign sequential IDs to every "+
				"provisional token, rewrite all mentions, save the document to "+
				"the repository root with a version footer, delete the draft, "+
				"and run the document type's post-finalization wiring.",
		),
		mcp.WithString("provisional_file_name",
			mcp.Required(),
			mcp.Description("Draft file name in the provisional store, e.g. \"PRD-PROVISIONAL1.md\"."),
		),
		mcp.WithString("file_name_suffix",
			mcp.Description("Optional filename suffix; lowercased with non-alphanumerics collapsed to underscores."),
		),
	)
}

// Handle processes the respec_finalize tool call.
func (t *FinalizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("provisional_file_name", "")
	if name == "" {
		return errorResult("'provisional_file_name' is required"), nil
	}
	suffix := req.GetString("file_name_suffix", "")

	res, err := t.resolver.Finalize(name, suffix)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if len(res.Mapping) == 0 {
		return mcp.NewToolResultText("No provisional artifact IDs found in " + name), nil
	}

	response := struct {
		SourceFilename string            `json:"source_filename"`
		Target         string            `json:"target"`
		TargetFilename string            `json:"target_filename"`
		IDMappings     map[string]string `json:"id_mappings"`
		ArtifactNames  map[string]string `json:"artifact_names,omitempty"`
		HandlerActions []string          `json:"handler_actions,omitempty"`
		HandlerErrors  []string          `json:"handler_errors,omitempty"`
	}{
		SourceFilename: res.SourceFilename,
		Target:         res.Target,
		TargetFilename: filepath.Base(res.TargetPath),
		IDMappings:     res.Mapping,
		ArtifactNames:  res.Names,
	}
	if res.Handler != nil {
		response.HandlerActions = res.Handler.Actions
		response.HandlerErrors = res.Handler.Errors
	}
	return jsonResult(response)
}
