package handler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var parentPrdPat = regexp.MustCompile(`(?m)^\s*\*Parent\*:\s*(PRD-\d+)`)

// taskprdHandler owns TASKPRD files. Finalization wires the document into
// the graph: the parent PRD learns about it through REFERENCED_BY, and
// every nested TASK is recorded in the requirements it implements.
type taskprdHandler struct {
	base
}

func (h *taskprdHandler) UpdateStatusContent(artifactID, status string) (string, error) {
	return h.setHeaderStatus(artifactID, status)
}

func (h *taskprdHandler) UpdateStatus(artifactID, status string) *StatusReport {
	rep := h.updateStatusTemplate(artifactID, status, h.setHeaderStatus)
	h.applyFileMove(rep, artifactID, status)
	return rep
}

func (h *taskprdHandler) MarkStepDone(artifactID, stepNumber string) error {
	return fmt.Errorf("%w: TASKPRD", ErrStepsUnsupported)
}

func (h *taskprdHandler) Finalize(artifactID string, mapping map[string]string) *FinalizeReport {
	rep := &FinalizeReport{HandlerType: "TASKPRD", ArtifactID: artifactID}

	if st := h.UpdateStatus(artifactID, "NEW"); st.Success {
		rep.act("updated %s status to NEW", artifactID)
	} else {
		rep.fail("failed to update %s status: %s", artifactID, st.Message())
	}

	a, err := h.repo.Get(artifactID)
	if err != nil {
		rep.fail("cannot read %s: %v", artifactID, err)
		return rep
	}

	if m := parentPrdPat.FindStringSubmatch(a.Content); m != nil {
		if err := h.addReferencedBy(m[1], artifactID); err != nil {
			rep.fail("failed to reference %s in %s: %v", artifactID, m[1], err)
		} else {
			rep.act("recorded %s in %s referenced-by list", artifactID, m[1])
		}
	}

	var taskIDs []string
	for _, finalID := range mapping {
		if strings.HasPrefix(finalID, "TASK-") {
			taskIDs = append(taskIDs, finalID)
		}
	}
	sort.Strings(taskIDs)

	th := &taskHandler{base{repo: h.repo, typeCode: "TASK"}}
	seenReqs := map[string]bool{}
	for _, taskID := range taskIDs {
		ta, err := h.repo.Get(taskID)
		if err != nil {
			rep.fail("cannot read %s: %v", taskID, err)
			continue
		}
		for _, reqID := range extractReqImplementations(ta.Content) {
			if err := h.addImplementingTask(reqID, taskID); err != nil {
				rep.fail("failed to record %s in %s: %v", taskID, reqID, err)
				continue
			}
			rep.act("recorded %s in %s implementing tasks", taskID, reqID)
			if !seenReqs[reqID] {
				seenReqs[reqID] = true
				rep.UpdatedReqs = append(rep.UpdatedReqs, reqID)
			}
		}
		if st := th.UpdateStatus(taskID, "NEW"); st.Success {
			rep.act("updated %s status to NEW", taskID)
		} else {
			rep.fail("failed to set %s to NEW: %s", taskID, st.Message())
		}
	}
	sort.Strings(rep.UpdatedReqs)
	return rep
}

// addReferencedBy appends a document to a PRD's REFERENCED_BY list,
// skipping members already present; the list stays sorted by bare ID.
func (h *taskprdHandler) addReferencedBy(prdID, refID string) error {
	a, err := h.repo.Get(prdID)
	if err != nil {
		return err
	}
	block := h.repo.Codec().Parse(a.Content)

	refs := splitList(block.Items["REFERENCED_BY"])
	for _, r := range refs {
		if cleanMember(r) == refID {
			return nil
		}
	}
	refs = append(refs, refID)
	sort.Slice(refs, func(i, j int) bool {
		return cleanMember(refs[i]) < cleanMember(refs[j])
	})

	updated, err := h.repo.Codec().Set(a.Content, map[string]string{
		"REFERENCED_BY": strings.Join(refs, ","),
	})
	if err != nil {
		return err
	}
	return h.writeBack(a, updated)
}
