package handler

import "fmt"

// taskHandler covers TASK sections inside TASKPRD files. A status change
// also annotates the task's status inside each requirement it implements,
// so the requirement lists read like "TASK-3 (COMPLETED)".
type taskHandler struct {
	base
}

func (h *taskHandler) UpdateStatusContent(artifactID, status string) (string, error) {
	return h.setHeaderStatus(artifactID, status)
}

func (h *taskHandler) UpdateStatus(artifactID, status string) *StatusReport {
	rep := h.updateStatusTemplate(artifactID, status, h.setHeaderStatus)
	if !rep.Success {
		return rep
	}

	a, err := h.repo.Get(artifactID)
	if err != nil {
		rep.Messages = append(rep.Messages, fmt.Sprintf("annotation warning: %v", err))
		return rep
	}
	for _, reqID := range extractReqImplementations(a.Content) {
		if err := h.annotateImplementingTaskStatus(reqID, artifactID, status); err != nil {
			rep.Messages = append(rep.Messages, fmt.Sprintf("annotation warning: %s: %v", reqID, err))
		} else {
			rep.Messages = append(rep.Messages, fmt.Sprintf("annotated %s in %s", artifactID, reqID))
		}
	}
	return rep
}

func (h *taskHandler) Finalize(artifactID string, mapping map[string]string) *FinalizeReport {
	return h.noFinalize(artifactID)
}

func (h *taskHandler) MarkStepDone(artifactID, stepNumber string) error {
	return h.markStepDone(artifactID, stepNumber)
}
