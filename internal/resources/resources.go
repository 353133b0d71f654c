// Package resources implements MCP resource handlers for the artifact
// repository.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (respec://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/respec/internal/repo"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages repository resource endpoints.
type Handler struct {
	repo *repo.Repository
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(r *repo.Repository) *Handler {
	return &Handler{repo: r}
}

// StatusResource returns the MCP resource definition for repository status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"respec://repository/status",
		"Artifact Repository Status",
		mcp.WithResourceDescription("Artifact counts by type and status, plus the full ledger"),
		mcp.WithMIMEType("application/json"),
	)
}

// ledgerEntry is the JSON shape of one ledger row.
type ledgerEntry struct {
	ArtifactID string `json:"artifact_id"`
	DocID      int    `json:"doc_id"`
	Name       string `json:"name"`
	Status     string `json:"status,omitempty"`
	Parent     string `json:"parent,omitempty"`
	IsFile     bool   `json:"is_file"`
}

// HandleStatus returns the current repository status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := h.repo.Index().All()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	byType := map[string]int{}
	byStatus := map[string]int{}
	ledger := make([]ledgerEntry, 0, len(entries))
	for _, e := range entries {
		if typeCode, _, found := strings.Cut(e.ArtifactID, "-"); found {
			byType[typeCode]++
		}
		if e.Status != "" {
			byStatus[strings.ToUpper(e.Status)]++
		}
		ledger = append(ledger, ledgerEntry{
			ArtifactID: e.ArtifactID,
			DocID:      e.DocID,
			Name:       e.Name,
			Status:     e.Status,
			Parent:     e.Parent,
			IsFile:     e.IsFile,
		})
	}

	status := struct {
		Root     string         `json:"root"`
		Total    int            `json:"total"`
		ByType   map[string]int `json:"by_type"`
		ByStatus map[string]int `json:"by_status"`
		Ledger   []ledgerEntry  `json:"ledger"`
	}{
		Root:     h.repo.Root(),
		Total:    len(entries),
		ByType:   byType,
		ByStatus: byStatus,
		Ledger:   ledger,
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
