package handler

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/respec/internal/index"
	"github.com/HendryAvila/respec/internal/repo"
)

var implementsReqPat = regexp.MustCompile(`\bREQ-(\d+)\b`)

// base carries the shared machinery every type strategy builds on.
type base struct {
	repo     *repo.Repository
	typeCode string
}

func (b *base) updateStatusInIndex(artifactID, status string) error {
	ok, err := b.repo.Index().UpdateEntry(artifactID, index.Update{Status: &status})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("artifact %s not found in index", artifactID)
	}
	return nil
}

// writeBack persists rewritten content to wherever the artifact lives.
func (b *base) writeBack(a *repo.Artifact, content string) error {
	if a.Entry.IsFile {
		_, err := b.repo.WriteFileContent(a.ID, content)
		return err
	}
	_, err := b.repo.WriteSectionContent(a.ID, content)
	return err
}

// setHeaderStatus rewrites the STATUS managed header in the artifact's own
// content. This is the default UpdateStatusContent implementation.
func (b *base) setHeaderStatus(artifactID, status string) (string, error) {
	a, err := b.repo.Get(artifactID)
	if err != nil {
		return "", err
	}
	updated, err := b.repo.Codec().Update(a.Content, map[string]string{"STATUS": status})
	if err != nil {
		return "", err
	}
	if err := b.writeBack(a, updated); err != nil {
		return "", err
	}
	return fmt.Sprintf("updated %s %s status to %s", b.typeCode, artifactID, status), nil
}

// updateStatusTemplate runs the ledger-then-content sequence and combines
// outcomes. The ledger step failing is reported as a warning, the content
// step failing fails the report; the two writes are independent, not
// transactional.
func (b *base) updateStatusTemplate(artifactID, status string, contentUpdate func(string, string) (string, error)) *StatusReport {
	rep := &StatusReport{ArtifactID: artifactID, Status: status, Success: true}

	if err := b.updateStatusInIndex(artifactID, status); err != nil {
		rep.Messages = append(rep.Messages, fmt.Sprintf("index warning: %v", err))
	} else {
		rep.Messages = append(rep.Messages, fmt.Sprintf("updated %s status to %s in index", artifactID, status))
	}

	msg, err := contentUpdate(artifactID, status)
	if err != nil {
		rep.Success = false
		rep.Messages = append(rep.Messages, fmt.Sprintf("content error: %v", err))
	} else {
		rep.Messages = append(rep.Messages, msg)
	}
	return rep
}

// applyFileMove relocates a file artifact into a status-named subdirectory
// when the type's configuration names the status as a move trigger.
func (b *base) applyFileMove(rep *StatusReport, artifactID, status string) {
	ti, err := b.repo.Registry().TypeInfo(b.typeCode)
	if err != nil {
		rep.Success = false
		rep.Messages = append(rep.Messages, fmt.Sprintf("file move error: %v", err))
		return
	}
	move := false
	for _, s := range ti.StatusMoveStatuses {
		if s == status {
			move = true
			break
		}
	}
	if !move {
		return
	}

	current, err := b.repo.FindFile(artifactID)
	if err != nil {
		rep.Success = false
		rep.Messages = append(rep.Messages, fmt.Sprintf("file move error: %v", err))
		return
	}
	targetDir := filepath.Join(b.repo.Root(), strings.ToLower(status))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		rep.Success = false
		rep.Messages = append(rep.Messages, fmt.Sprintf("file move error: %v", err))
		return
	}
	target := filepath.Join(targetDir, filepath.Base(current))
	if err := os.Rename(current, target); err != nil {
		rep.Success = false
		rep.Messages = append(rep.Messages, fmt.Sprintf("file move error: %v", err))
		return
	}
	rep.Messages = append(rep.Messages, fmt.Sprintf("moved %s file to %s/", artifactID, strings.ToLower(status)))
}

// markStepDone flips the first "[ ] <step> ..." checkbox line to "[x]".
func (b *base) markStepDone(artifactID, stepNumber string) error {
	a, err := b.repo.Get(artifactID)
	if err != nil {
		return err
	}
	stepPat, err := regexp.Compile(`^\[ \] (` + regexp.QuoteMeta(stepNumber) + `) (.+)$`)
	if err != nil {
		return err
	}

	lines := strings.Split(a.Content, "\n")
	done := false
	for i, line := range lines {
		if m := stepPat.FindStringSubmatch(line); m != nil {
			lines[i] = fmt.Sprintf("[x] %s %s", m[1], m[2])
			done = true
			break
		}
	}
	if !done {
		return fmt.Errorf("%w: step %s in %s", ErrStepNotFound, stepNumber, artifactID)
	}
	return b.writeBack(a, strings.Join(lines, "\n"))
}

// extractReqImplementations pulls the REQ IDs from a section's first
// "*Implements*:" line.
func extractReqImplementations(content string) []string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "*Implements*:") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, "*Implements*:"))
		var reqs []string
		for _, m := range implementsReqPat.FindAllStringSubmatch(rest, -1) {
			reqs = append(reqs, "REQ-"+m[1])
		}
		return reqs
	}
	return nil
}

// annotateMember sets the "(STATUS)" annotation on the matching member of
// a comma-separated list, appending the member if absent.
func annotateMember(list []string, artifactID, status string) []string {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, member := range list {
		if cleanMember(member) == artifactID {
			out = append(out, fmt.Sprintf("%s (%s)", artifactID, status))
			found = true
		} else {
			out = append(out, member)
		}
	}
	if !found {
		out = append(out, fmt.Sprintf("%s (%s)", artifactID, status))
	}
	return out
}

// addImplementingTask records a TASK in a REQ's IMPLEMENTING_TASKS list,
// skipping members already present regardless of status annotation; the
// list is kept sorted by bare task ID.
func (b *base) addImplementingTask(reqID, taskID string) error {
	a, err := b.repo.Get(reqID)
	if err != nil {
		return err
	}
	block := b.repo.Codec().Parse(a.Content)

	tasks := splitList(block.Items["IMPLEMENTING_TASKS"])
	for _, t := range tasks {
		if cleanMember(t) == taskID {
			return nil
		}
	}
	tasks = append(tasks, taskID)
	sort.Slice(tasks, func(i, j int) bool {
		return cleanMember(tasks[i]) < cleanMember(tasks[j])
	})

	updated, err := b.repo.Codec().Set(a.Content, map[string]string{
		"IMPLEMENTING_TASKS": strings.Join(tasks, ","),
	})
	if err != nil {
		return err
	}
	return b.writeBack(a, updated)
}

// annotateImplementingTaskStatus rewrites a TASK's status annotation inside
// a REQ's IMPLEMENTING_TASKS list.
func (b *base) annotateImplementingTaskStatus(reqID, taskID, status string) error {
	a, err := b.repo.Get(reqID)
	if err != nil {
		return err
	}
	block := b.repo.Codec().Parse(a.Content)
	tasks := annotateMember(splitList(block.Items["IMPLEMENTING_TASKS"]), taskID, status)

	updated, err := b.repo.Codec().Set(a.Content, map[string]string{
		"IMPLEMENTING_TASKS": strings.Join(tasks, ","),
	})
	if err != nil {
		return err
	}
	return b.writeBack(a, updated)
}

// applyCoveringTests rewrites this test artifact's status annotation in
// every REQ whose COVERING_TESTS list mentions it. Failures here never fail
// the enclosing status update; they are reported and skipped.
func (b *base) applyCoveringTests(rep *StatusReport, artifactID, status string) {
	entries, err := b.repo.Index().All()
	if err != nil {
		rep.Messages = append(rep.Messages, fmt.Sprintf("covering tests error: %v", err))
		return
	}

	var updated []string
	for _, e := range entries {
		if !strings.HasPrefix(e.ArtifactID, "REQ-") {
			continue
		}
		a, err := b.repo.Get(e.ArtifactID)
		if err != nil {
			continue
		}
		block := b.repo.Codec().Parse(a.Content)
		tests := splitList(block.Items["COVERING_TESTS"])

		mentioned := false
		for _, t := range tests {
			if cleanMember(t) == artifactID {
				mentioned = true
				break
			}
		}
		if !mentioned {
			continue
		}

		annotated := annotateMember(tests, artifactID, status)
		newContent, err := b.repo.Codec().Set(a.Content, map[string]string{
			"COVERING_TESTS": strings.Join(annotated, ","),
		})
		if err != nil {
			rep.Messages = append(rep.Messages, fmt.Sprintf("covering tests error for %s: %v", e.ArtifactID, err))
			continue
		}
		if err := b.writeBack(a, newContent); err != nil {
			rep.Messages = append(rep.Messages, fmt.Sprintf("covering tests error for %s: %v", e.ArtifactID, err))
			continue
		}
		updated = append(updated, e.ArtifactID)
	}
	if len(updated) > 0 {
		rep.Messages = append(rep.Messages, fmt.Sprintf("updated covering tests in %s", strings.Join(updated, ", ")))
	}
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// noFinalize is the default post-finalization hook.
func (b *base) noFinalize(artifactID string) *FinalizeReport {
	rep := &FinalizeReport{HandlerType: b.typeCode, ArtifactID: artifactID}
	rep.act("no post-processing required for %s", b.typeCode)
	return rep
}

func logWarn(format string, args ...any) {
	log.Printf("Warning: "+format, args...)
}
