// Package templates serves the authoring templates for each artifact type.
// Templates are embedded at build time, one directory per type code,
// mirroring how authors draft documents with provisional IDs before
// finalization assigns real ones.
package templates

import (
	"embed"
	"fmt"

	"github.com/HendryAvila/respec/internal/artifact"
)

//go:embed files
var templateFS embed.FS

// Get returns the authoring template for an artifact type. The type is
// validated against the registry before lookup.
func Get(reg *artifact.Registry, artifactType string) (string, error) {
	code, err := reg.NormalizeType(artifactType)
	if err != nil {
		return "", err
	}
	data, err := templateFS.ReadFile("files/" + code + "/template.md")
	if err != nil {
		return "", fmt.Errorf("no template for artifact type %s: %w", code, err)
	}
	return string(data), nil
}
