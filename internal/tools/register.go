package tools

import (
	"context"
	"strings"

	"github.com/HendryAvila/respec/internal/resolver"
	"github.com/mark3labs/mcp-go/mcp"
)

// RegisterProvisionalTool handles the respec_register_provisional_ids MCP
// tool. It assigns real IDs to provisional tokens inside an existing
// document, in place, without renaming the file.
type RegisterProvisionalTool struct {
	resolver *resolver.Resolver
}

func NewRegisterProvisionalTool(rv *resolver.Resolver) *RegisterProvisionalTool {
	return &RegisterProvisionalTool{resolver: rv}
}

// Definition returns the MCP tool definition for registration.
func (t *RegisterProvisionalTool) Definition() mcp.Tool {
	return mcp.NewTool("respec_register_provisional_ids",
		mcp.WithDescription(
			"Register provisional IDs inside an existing document: assign "+
				"sequential IDs, rewrite mentions and step references, set each "+
				"new artifact to NEW, and record declared test coverage in the "+
				"covered requirements.",
		),
		mcp.WithString("artifact_id",
			mcp.Required(),
			mcp.Description("Host document to scan, e.g. \"PRD-1\"."),
		),
		mcp.WithString("allowed_types",
			mcp.Description("Comma-separated types to register. Default \"UACC,SACC\"; \"*\" registers all."),
		),
	)
}

// Handle processes the respec_register_provisional_ids tool call.
func (t *RegisterProvisionalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	artifactID := req.GetString("artifact_id", "")
	if artifactID == "" {
		return errorResult("'artifact_id' is required"), nil
	}

	allowed := req.GetString("allowed_types", "UACC,SACC")
	var allowedTypes []string
	if strings.TrimSpace(allowed) != "*" {
		for _, tC := range strings.Split(allowed, ",") {
			if tC = strings.TrimSpace(tC); tC != "" {
				allowedTypes = append(allowedTypes, tC)
			}
		}
	}

	res, err := t.resolver.Register(artifactID, allowedTypes)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if len(res.Mapping) == 0 {
		return mcp.NewToolResultText("No provisional IDs found in " + res.ArtifactID), nil
	}

	return jsonResult(struct {
		ArtifactID     string            `json:"artifact_id"`
		IDMappings     map[string]string `json:"id_mappings"`
		ArtifactNames  map[string]string `json:"artifact_names,omitempty"`
		StatusMessages []string          `json:"status_updates,omitempty"`
		UpdatedReqs    []string          `json:"updated_reqs,omitempty"`
		Errors         []string          `json:"errors,omitempty"`
	}{res.ArtifactID, res.Mapping, res.Names, res.StatusMessages, res.UpdatedReqs, res.Errors})
}
