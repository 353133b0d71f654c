package config

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv(EnvDocRepoRoot, "/srv/doc-repo")
	t.Setenv(EnvProvisionalStore, "/srv/drafts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DocRepoRoot != "/srv/doc-repo" {
		t.Errorf("DocRepoRoot = %q, want %q", cfg.DocRepoRoot, "/srv/doc-repo")
	}
	if cfg.ProvisionalStore != "/srv/drafts" {
		t.Errorf("ProvisionalStore = %q, want %q", cfg.ProvisionalStore, "/srv/drafts")
	}
}

func TestLoadMissingRepoRoot(t *testing.T) {
	t.Setenv(EnvDocRepoRoot, "")
	t.Setenv(EnvProvisionalStore, "/srv/drafts")

	_, err := Load()
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("Load() error = %v, want ErrConfigurationMissing", err)
	}
	if !strings.Contains(err.Error(), EnvDocRepoRoot) {
		t.Errorf("error %q should name %s", err, EnvDocRepoRoot)
	}
}

func TestLoadMissingProvisionalStore(t *testing.T) {
	t.Setenv(EnvDocRepoRoot, "/srv/doc-repo")
	t.Setenv(EnvProvisionalStore, "")

	_, err := Load()
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("Load() error = %v, want ErrConfigurationMissing", err)
	}
	if !strings.Contains(err.Error(), EnvProvisionalStore) {
		t.Errorf("error %q should name %s", err, EnvProvisionalStore)
	}
}
