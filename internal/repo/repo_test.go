package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/respec/internal/artifact"
	"github.com/HendryAvila/respec/internal/header"
	"github.com/HendryAvila/respec/internal/index"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	root := t.TempDir()
	reg, err := artifact.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	codec, err := header.NewCodec(reg)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return New(root, reg, index.New(root), codec)
}

func writeDoc(t *testing.T, r *Repository, relPath, content string) string {
	t.Helper()
	path := filepath.Join(r.Root(), relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- identifier resolution ---

func TestResolveIdentifier(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("REQ-7", "Timeout", "NEW", false, "PRD-1")

	for _, identifier := range []string{"1", "req-7", "REQ-7"} {
		got, err := r.ResolveIdentifier(identifier)
		if err != nil {
			t.Fatalf("ResolveIdentifier(%q) error = %v", identifier, err)
		}
		if got != "REQ-7" {
			t.Errorf("ResolveIdentifier(%q) = %q, want REQ-7", identifier, got)
		}
	}
}

func TestResolveIdentifierNotFound(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("REQ-7", "", "", false, "")

	for _, identifier := range []string{"99", "PRD-1", ""} {
		if _, err := r.ResolveIdentifier(identifier); !errors.Is(err, ErrNotFound) {
			t.Errorf("ResolveIdentifier(%q) error = %v, want ErrNotFound", identifier, err)
		}
	}
}

// --- allocation ---

func TestNewArtifactID(t *testing.T) {
	r := newTestRepo(t)

	id, err := r.NewArtifactID("prd", "Login", true, "")
	if err != nil {
		t.Fatalf("NewArtifactID() error = %v", err)
	}
	if id != "PRD-1" {
		t.Errorf("NewArtifactID() = %q, want PRD-1", id)
	}

	id, err = r.NewArtifactID("REQ", "Auth", false, "PRD-1")
	if err != nil {
		t.Fatalf("NewArtifactID() error = %v", err)
	}
	if id != "REQ-2" {
		t.Errorf("NewArtifactID() = %q, want REQ-2", id)
	}

	if _, err := r.NewArtifactID("BOGUS", "", true, ""); !errors.Is(err, artifact.ErrUnknownType) {
		t.Errorf("NewArtifactID(BOGUS) error = %v, want ErrUnknownType", err)
	}
}

// --- file artifacts ---

func TestGetFileArtifact(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "Login", "DRAFT", true, "")
	writeDoc(t, r, "sub/PRD-1_login.md", "# PRD-1: Login\n\nBody.")

	a, err := r.Get("PRD-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.HasPrefix(a.Content, "# PRD-1: Login") {
		t.Errorf("Content = %q", a.Content)
	}
	if !strings.HasSuffix(a.Path, "PRD-1_login.md") {
		t.Errorf("Path = %q", a.Path)
	}
}

func TestFindFilePrefersUnderscorePattern(t *testing.T) {
	r := newTestRepo(t)
	writeDoc(t, r, "PRD-1.md", "exact")
	writeDoc(t, r, "PRD-1_login.md", "prefixed")

	path, err := r.FindFile("PRD-1")
	if err != nil {
		t.Fatalf("FindFile() error = %v", err)
	}
	if !strings.HasSuffix(path, "PRD-1_login.md") {
		t.Errorf("FindFile() = %q, want the underscore-pattern match", path)
	}
}

func TestGetFileArtifactMissingFile(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "", "", true, "")

	if _, err := r.Get("PRD-1"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Get() error = %v, want ErrFileNotFound", err)
	}
}

// --- section artifacts ---

const hostDoc = `# PRD-1: Login

## Requirements

### REQ-2: Session timeout
` + "`Status`: NEW" + `

Expire sessions after 30 minutes.

### REQ-12: Password policy

At least 12 characters.
`

func TestGetSectionArtifact(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "Login", "DRAFT", true, "")
	r.Index().Add("REQ-2", "Session timeout", "NEW", false, "PRD-1")
	r.Index().Add("REQ-12", "Password policy", "NEW", false, "PRD-1")
	writeDoc(t, r, "PRD-1_login.md", hostDoc)

	a, err := r.Get("REQ-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.HasPrefix(a.Content, "### REQ-2: Session timeout") {
		t.Errorf("Content = %q", a.Content)
	}
	if strings.Contains(a.Content, "REQ-12") {
		t.Errorf("Content = %q, must stop before the next section", a.Content)
	}
}

func TestGetSectionExactHeadingMatch(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("REQ-1", "", "NEW", false, "")
	writeDoc(t, r, "doc.md", "### REQ-12: Not this one\n\ntext\n")

	if _, err := r.Get("REQ-1"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("Get(REQ-1) error = %v, want ErrSectionNotFound (REQ-12 is a different artifact)", err)
	}
}

// --- updates ---

func TestUpdateFileArtifactRequiresCapability(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "Login", "DRAFT", true, "")
	path := writeDoc(t, r, "PRD-1_login.md", "# PRD-1: Login\noriginal")

	_, err := r.Update("PRD-1", "# PRD-1: Login\nreplaced")
	if !errors.Is(err, ErrUpdateNotAllowed) {
		t.Fatalf("Update() error = %v, want ErrUpdateNotAllowed", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "original") {
		t.Error("file must be unmodified after a rejected update")
	}
}

func TestUpdateFileArtifact(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("TASKPRD-1", "Plan", "DRAFT", true, "")
	path := writeDoc(t, r, "TASKPRD-1_plan.md", "# TASKPRD-1: Plan\nold")

	if _, err := r.Update("TASKPRD-1", "# TASKPRD-1: Plan\nnew body"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "# TASKPRD-1: Plan\nnew body" {
		t.Errorf("file content = %q", string(data))
	}
}

func TestUpdateSectionSplicesInPlace(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "Login", "DRAFT", true, "")
	r.Index().Add("REQ-2", "Session timeout", "NEW", false, "PRD-1")
	r.Index().Add("REQ-12", "Password policy", "NEW", false, "PRD-1")
	path := writeDoc(t, r, "PRD-1_login.md", hostDoc)

	newSection := "### REQ-2: Session timeout\n`Status`: ACTIVE\n\nExpire after 15 minutes."
	if _, err := r.Update("REQ-2", newSection); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.Contains(content, "Expire after 15 minutes.") {
		t.Errorf("updated section missing:\n%s", content)
	}
	if strings.Contains(content, "30 minutes") {
		t.Errorf("old section text still present:\n%s", content)
	}
	if !strings.Contains(content, "### REQ-12: Password policy") {
		t.Errorf("following section lost:\n%s", content)
	}
	if !strings.Contains(content, "# PRD-1: Login") {
		t.Errorf("host file title lost:\n%s", content)
	}
}

func TestUpdateSectionSynthesizesHeading(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "Login", "DRAFT", true, "")
	r.Index().Add("REQ-2", "Session timeout", "NEW", false, "PRD-1")
	r.Index().Add("REQ-12", "", "NEW", false, "PRD-1")
	path := writeDoc(t, r, "PRD-1_login.md", hostDoc)

	if _, err := r.Update("REQ-2", "Content without a heading."); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "### REQ-2: Session timeout\nContent without a heading.") {
		t.Errorf("heading not synthesized from index name:\n%s", string(data))
	}
}

// --- reference scanning ---

func TestScanContentReferences(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "Login", "DRAFT", true, "")
	r.Index().Add("REQ-2", "Session timeout", "NEW", false, "PRD-1")
	r.Index().Add("TASK-3", "Wire sessions", "NEW", false, "")
	writeDoc(t, r, "PRD-1_login.md", hostDoc)
	writeDoc(t, r, "TASKPRD-9_plan.md", "# TASKPRD-9: Plan\n\n### TASK-3: Wire sessions\n\n*Implements*: REQ-2\n")
	writeDoc(t, r, "index.md", "1,REQ-2,ledger mention,NEW,false,\n")

	refs, err := r.ScanContentReferences("REQ-2")
	if err != nil {
		t.Fatalf("ScanContentReferences() error = %v", err)
	}

	lines, ok := refs["TASK-3"]
	if !ok {
		t.Fatalf("refs = %v, want TASK-3 container", refs)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "*Implements*: REQ-2") {
		t.Errorf("TASK-3 lines = %v", lines)
	}
	// the REQ-2 heading inside its own section is a self-reference
	if _, ok := refs["REQ-2"]; ok {
		t.Error("self-references must be excluded")
	}
}

func TestScanContentReferencesFiltersUnknownContainers(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("REQ-2", "", "NEW", false, "")
	writeDoc(t, r, "notes.md", "# TASKPRD-99: Unregistered\n\nmentions REQ-2 here\n")

	refs, err := r.ScanContentReferences("REQ-2")
	if err != nil {
		t.Fatalf("ScanContentReferences() error = %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("refs = %v, want containers unknown to the index filtered out", refs)
	}
}

// --- type search ---

func TestSearchByType(t *testing.T) {
	r := newTestRepo(t)
	r.Index().Add("PRD-1", "", "DRAFT", true, "")
	r.Index().Add("REQ-2", "", "NEW", false, "PRD-1")
	r.Index().Add("REQ-3", "", "COMPLETED", false, "PRD-1")
	r.Index().Add("REQ-4", "", "NEW", false, "PRD-9")

	all, err := r.SearchByType("req", "", "")
	if err != nil {
		t.Fatalf("SearchByType() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("SearchByType(req) = %d entries, want 3", len(all))
	}

	byStatus, _ := r.SearchByType("REQ", "new,completed", "")
	if len(byStatus) != 3 {
		t.Errorf("SearchByType(status filter) = %d entries, want 3", len(byStatus))
	}

	byParent, _ := r.SearchByType("REQ", "NEW", "PRD-1")
	if len(byParent) != 1 || byParent[0].ArtifactID != "REQ-2" {
		t.Errorf("SearchByType(parent filter) = %+v", byParent)
	}

	if _, err := r.SearchByType("NOPE", "", ""); !errors.Is(err, artifact.ErrUnknownType) {
		t.Errorf("SearchByType(NOPE) error = %v, want ErrUnknownType", err)
	}
}
