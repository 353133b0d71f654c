package handler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/respec/internal/artifact"
	"github.com/HendryAvila/respec/internal/header"
	"github.com/HendryAvila/respec/internal/index"
	"github.com/HendryAvila/respec/internal/repo"
)

func newTestDispatch(t *testing.T) (*Dispatch, *repo.Repository) {
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
	r := repo.New(root, reg, index.New(root), codec)
	return NewDispatch(r), r
}

func writeDoc(t *testing.T, r *repo.Repository, relPath, content string) string {
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

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const prdDoc = `# PRD-1: Login
` + "`Status`: DRAFT" + `

## Requirements

### REQ-2: Session timeout
` + "`Status`: NEW" + `
` + "`Parent`: PRD-1" + `
` + "`Implementing Tasks`: TASK-4" + `
` + "`Covering Tests`: UACC-3" + `

Sessions expire after 30 minutes of inactivity.

## Acceptance Tests

### UACC-3: Expired session redirects to login
` + "`Status`: NEW" + `
` + "`Parent`: PRD-1" + `

[ ] 1 Sign in and wait for the timeout
[ ] 2 Observe the redirect

## Notes

Nothing yet.
`

const taskprdDoc = `# TASKPRD-3: Login implementation plan
` + "`Status`: DRAFT" + `

*Parent*: PRD-1

## Tasks

### TASK-4: Add session expiry timer
` + "`Status`: NEW" + `
` + "`Parent`: TASKPRD-3" + `

*Implements*: REQ-2

[ ] 1 Add the timer
[ ] 2 Wire the redirect
`

func seedRepo(t *testing.T, r *repo.Repository) (prdPath, taskprdPath string) {
	t.Helper()
	prdPath = writeDoc(t, r, "PRD-1_login.md", prdDoc)
	taskprdPath = writeDoc(t, r, "TASKPRD-3_login_implementation_plan.md", taskprdDoc)
	for _, e := range []struct {
		id, name, status string
		isFile           bool
		parent           string
	}{
		{"PRD-1", "Login", "DRAFT", true, ""},
		{"REQ-2", "Session timeout", "NEW", false, "PRD-1"},
		{"UACC-3", "Expired session redirects to login", "NEW", false, "PRD-1"},
		{"TASKPRD-3", "Login implementation plan", "DRAFT", true, "PRD-1"},
		{"TASK-4", "Add session expiry timer", "NEW", false, "TASKPRD-3"},
	} {
		if _, err := r.Index().Add(e.id, e.name, e.status, e.isFile, e.parent); err != nil {
			t.Fatalf("Add(%s) error = %v", e.id, err)
		}
	}
	return prdPath, taskprdPath
}

// --- status updates ---

func TestUpdateStatusRewritesIndexAndHeader(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	rep, err := d.UpdateArtifactStatus("req-2", "approved")
	if err != nil {
		t.Fatalf("UpdateArtifactStatus() error = %v", err)
	}
	if !rep.Success {
		t.Fatalf("UpdateArtifactStatus() failed: %s", rep.Message())
	}

	e, ok, err := r.Index().ByArtifactID("REQ-2")
	if err != nil || !ok {
		t.Fatalf("ByArtifactID(REQ-2) = %v, %v, %v", e, ok, err)
	}
	if e.Status != "APPROVED" {
		t.Errorf("index status = %q, want APPROVED", e.Status)
	}
	if got := mustRead(t, prdPath); !strings.Contains(got, "### REQ-2: Session timeout\n`Status`: APPROVED") {
		t.Errorf("section header not rewritten:\n%s", got)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	d, r := newTestDispatch(t)
	seedRepo(t, r)

	if _, err := d.UpdateArtifactStatus("REQ-2", "BOGUS"); !errors.Is(err, artifact.ErrInvalidStatusForType) {
		t.Errorf("UpdateArtifactStatus() error = %v, want ErrInvalidStatusForType", err)
	}
}

func TestUpdateStatusContentErrorKeepsIndexWrite(t *testing.T) {
	d, r := newTestDispatch(t)
	r.Index().Add("REQ-9", "Orphan", "NEW", false, "")

	rep, err := d.UpdateArtifactStatus("REQ-9", "ACTIVE")
	if err != nil {
		t.Fatalf("UpdateArtifactStatus() error = %v", err)
	}
	if rep.Success {
		t.Fatal("UpdateArtifactStatus() succeeded, want content error")
	}
	if !strings.Contains(rep.Message(), "content error") {
		t.Errorf("Message() = %q, want content error", rep.Message())
	}
	e, _, _ := r.Index().ByArtifactID("REQ-9")
	if e.Status != "ACTIVE" {
		t.Errorf("index status = %q, want ACTIVE despite content error", e.Status)
	}
}

func TestPRDStatusCompletedMovesFile(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	rep, err := d.UpdateArtifactStatus("PRD-1", "COMPLETED")
	if err != nil {
		t.Fatalf("UpdateArtifactStatus() error = %v", err)
	}
	if !rep.Success {
		t.Fatalf("UpdateArtifactStatus() failed: %s", rep.Message())
	}

	moved := filepath.Join(r.Root(), "completed", filepath.Base(prdPath))
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("moved file: %v", err)
	}
	if _, err := os.Stat(prdPath); !os.IsNotExist(err) {
		t.Errorf("original path still exists")
	}
	if !strings.Contains(mustRead(t, moved), "`Status`: COMPLETED") {
		t.Error("moved file missing rewritten status header")
	}
	// The relocated file must stay resolvable.
	if _, err := d.repo.Get("PRD-1"); err != nil {
		t.Errorf("Get(PRD-1) after move error = %v", err)
	}
}

func TestTaskStatusAnnotatesImplementingReqs(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	rep, err := d.UpdateArtifactStatus("TASK-4", "COMPLETED")
	if err != nil {
		t.Fatalf("UpdateArtifactStatus() error = %v", err)
	}
	if !rep.Success {
		t.Fatalf("UpdateArtifactStatus() failed: %s", rep.Message())
	}
	if got := mustRead(t, prdPath); !strings.Contains(got, "`Implementing Tasks`: TASK-4 (COMPLETED)") {
		t.Errorf("REQ-2 annotation missing:\n%s", got)
	}
}

func TestAcceptanceStatusAnnotatesCoveringTests(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	rep, err := d.UpdateArtifactStatus("UACC-3", "TESTING")
	if err != nil {
		t.Fatalf("UpdateArtifactStatus() error = %v", err)
	}
	if !rep.Success {
		t.Fatalf("UpdateArtifactStatus() failed: %s", rep.Message())
	}
	if got := mustRead(t, prdPath); !strings.Contains(got, "`Covering Tests`: UACC-3 (TESTING)") {
		t.Errorf("REQ-2 covering tests annotation missing:\n%s", got)
	}
}

// --- step marking ---

func TestMarkStepDone(t *testing.T) {
	d, r := newTestDispatch(t)
	_, taskprdPath := seedRepo(t, r)

	if err := d.MarkStepDone("TASK-4", "1"); err != nil {
		t.Fatalf("MarkStepDone() error = %v", err)
	}
	got := mustRead(t, taskprdPath)
	if !strings.Contains(got, "[x] 1 Add the timer") {
		t.Errorf("step 1 not marked:\n%s", got)
	}
	if !strings.Contains(got, "[ ] 2 Wire the redirect") {
		t.Errorf("step 2 should stay open:\n%s", got)
	}

	if err := d.MarkStepDone("TASK-4", "1"); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("second MarkStepDone() error = %v, want ErrStepNotFound", err)
	}
}

func TestMarkStepDoneUnsupportedType(t *testing.T) {
	d, r := newTestDispatch(t)
	seedRepo(t, r)

	if err := d.MarkStepDone("PRD-1", "1"); !errors.Is(err, ErrStepsUnsupported) {
		t.Errorf("MarkStepDone(PRD-1) error = %v, want ErrStepsUnsupported", err)
	}
}

// --- finalization ---

func TestPRDFinalizeSetsSelfAndReqsToNew(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	mapping := map[string]string{
		"PROVISIONAL1":   "PRD-1",
		"PROVISIONAL1.1": "REQ-2",
	}
	rep, ok := d.Finalize("PRD", "PRD-1", mapping)
	if !ok {
		t.Fatal("Finalize() found no PRD handler")
	}
	if !rep.Completed() {
		t.Fatalf("Finalize() errors = %v", rep.Errors)
	}
	if len(rep.UpdatedReqs) != 1 || rep.UpdatedReqs[0] != "REQ-2" {
		t.Errorf("UpdatedReqs = %v, want [REQ-2]", rep.UpdatedReqs)
	}

	got := mustRead(t, prdPath)
	if !strings.Contains(got, "# PRD-1: Login\n`Status`: NEW") {
		t.Errorf("PRD header not set to NEW:\n%s", got)
	}
	if !strings.Contains(got, "### REQ-2: Session timeout\n`Status`: NEW") {
		t.Errorf("REQ-2 header not set to NEW:\n%s", got)
	}
}

func TestTASKPRDFinalizeWiresGraph(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, taskprdPath := seedRepo(t, r)

	mapping := map[string]string{
		"PROVISIONAL1":   "TASKPRD-3",
		"PROVISIONAL1.1": "TASK-4",
	}
	rep, ok := d.Finalize("TASKPRD", "TASKPRD-3", mapping)
	if !ok {
		t.Fatal("Finalize() found no TASKPRD handler")
	}
	if !rep.Completed() {
		t.Fatalf("Finalize() errors = %v", rep.Errors)
	}
	if len(rep.UpdatedReqs) != 1 || rep.UpdatedReqs[0] != "REQ-2" {
		t.Errorf("UpdatedReqs = %v, want [REQ-2]", rep.UpdatedReqs)
	}

	prd := mustRead(t, prdPath)
	if !strings.Contains(prd, "`Referenced by`: TASKPRD-3") {
		t.Errorf("PRD referenced-by missing:\n%s", prd)
	}
	if !strings.Contains(prd, "`Implementing Tasks`: TASK-4 (NEW)") {
		t.Errorf("REQ-2 implementing-tasks annotation missing:\n%s", prd)
	}
	if !strings.Contains(mustRead(t, taskprdPath), "# TASKPRD-3: Login implementation plan\n`Status`: NEW") {
		t.Errorf("TASKPRD header not set to NEW")
	}
	e, _, _ := r.Index().ByArtifactID("TASK-4")
	if e.Status != "NEW" {
		t.Errorf("TASK-4 index status = %q, want NEW", e.Status)
	}
}

func TestFinalizeUnknownType(t *testing.T) {
	d, _ := newTestDispatch(t)
	if _, ok := d.Finalize("BOGUS", "BOGUS-1", nil); ok {
		t.Error("Finalize(BOGUS) = ok, want no handler")
	}
}

// --- references ---

func TestAddReference(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	msg, err := d.AddReference("PRD-1", "TASKPRD-3")
	if err != nil {
		t.Fatalf("AddReference() error = %v", err)
	}
	if !strings.Contains(msg, "TASKPRD-3") {
		t.Errorf("AddReference() = %q", msg)
	}
	if !strings.Contains(mustRead(t, prdPath), "`Referenced by`: TASKPRD-3") {
		t.Error("PRD referenced-by not written")
	}
}

func TestAddReferenceRejectsUnsupportedTarget(t *testing.T) {
	d, r := newTestDispatch(t)
	seedRepo(t, r)

	if _, err := d.AddReference("REQ-2", "TASKPRD-3"); err == nil {
		t.Error("AddReference(REQ-2) error = nil, want unsupported target")
	}
}

func TestAddReferenceRejectsWrongRefType(t *testing.T) {
	d, r := newTestDispatch(t)
	seedRepo(t, r)

	if _, err := d.AddReference("PRD-1", "REQ-2"); err == nil {
		t.Error("AddReference(PRD-1, REQ-2) error = nil, want type rejection")
	}
}

// --- nested artifacts ---

func TestAddNestedInsertsIntoAcceptanceTests(t *testing.T) {
	d, r := newTestDispatch(t)
	prdPath, _ := seedRepo(t, r)

	content := "### SACC-9: Timer fires under load\n`Status`: NEW\n`Parent`: PRD-1"
	if _, err := d.AddNested("PRD-1", "sacc", content); err != nil {
		t.Fatalf("AddNested() error = %v", err)
	}

	got := mustRead(t, prdPath)
	inserted := strings.Index(got, "### SACC-9:")
	section := strings.Index(got, "## Acceptance Tests")
	notes := strings.Index(got, "## Notes")
	if inserted < 0 {
		t.Fatalf("nested content missing:\n%s", got)
	}
	if inserted < section || inserted > notes {
		t.Errorf("nested content outside Acceptance Tests section (pos %d, section %d, notes %d)", inserted, section, notes)
	}
}

func TestAddNestedCreatesSection(t *testing.T) {
	d, r := newTestDispatch(t)
	path := writeDoc(t, r, "PRD-5_bare.md", "# PRD-5: Bare\n`Status`: DRAFT\n\nBody.\n")
	r.Index().Add("PRD-5", "Bare", "DRAFT", true, "")

	if _, err := d.AddNested("PRD-5", "UACC", "### UACC-6: Works\n`Status`: NEW"); err != nil {
		t.Fatalf("AddNested() error = %v", err)
	}
	got := mustRead(t, path)
	if !strings.Contains(got, "## Acceptance Tests\n\n### UACC-6: Works") {
		t.Errorf("section not created:\n%s", got)
	}
}

func TestAddNestedRejectsUnsupportedParent(t *testing.T) {
	d, r := newTestDispatch(t)
	seedRepo(t, r)

	if _, err := d.AddNested("TASKPRD-3", "UACC", "### UACC-6: X"); err == nil {
		t.Error("AddNested(TASKPRD-3) error = nil, want unsupported parent")
	}
	if _, err := d.AddNested("PRD-1", "TASK", "### TASK-6: X"); err == nil {
		t.Error("AddNested(PRD-1, TASK) error = nil, want disallowed nested type")
	}
}
