// Package tools implements the MCP tool handlers for the artifact
// repository.
//
// Each tool is a struct that receives its dependencies at construction
// (repository, type dispatch, resolver, search index) and exposes a
// Definition for registration plus a Handle compatible with mcp-go's
// CallToolRequest signature. One file per tool.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult marshals v as indented JSON into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult formats an operation failure as a tool-level error, keeping
// the protocol call itself successful.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}

// boolArg extracts a boolean argument with a default.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
