// Package config resolves the environment-provided settings respec needs:
// the document repository root and the provisional draft store. Both are
// required external inputs — their absence is a configuration error, not a
// data error, and is reported before any tool touches the filesystem.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Environment variable names.
const (
	EnvDocRepoRoot      = "RESPEC_DOC_REPO_ROOT"
	EnvProvisionalStore = "RESPEC_PROVISIONAL_STORE"
)

// ErrConfigurationMissing indicates a required environment setting is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config holds the resolved repository paths. Constructed once at startup
// and passed explicitly to every component that needs it.
type Config struct {
	// DocRepoRoot is the root directory of the artifact repository,
	// holding index.md and all finalized artifact files.
	DocRepoRoot string

	// ProvisionalStore is the directory where draft documents with
	// provisional IDs live until finalization.
	ProvisionalStore string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	repoRoot := os.Getenv(EnvDocRepoRoot)
	if repoRoot == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrConfigurationMissing, EnvDocRepoRoot)
	}

	provStore := os.Getenv(EnvProvisionalStore)
	if provStore == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrConfigurationMissing, EnvProvisionalStore)
	}

	return &Config{
		DocRepoRoot:      repoRoot,
		ProvisionalStore: provStore,
	}, nil
}
