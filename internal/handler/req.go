package handler

import "fmt"

// reqHandler covers requirement sections. Requirements live inside PRD
// files, so a status change only touches the section header.
type reqHandler struct {
	base
}

func (h *reqHandler) UpdateStatusContent(artifactID, status string) (string, error) {
	return h.setHeaderStatus(artifactID, status)
}

func (h *reqHandler) UpdateStatus(artifactID, status string) *StatusReport {
	return h.updateStatusTemplate(artifactID, status, h.setHeaderStatus)
}

func (h *reqHandler) Finalize(artifactID string, mapping map[string]string) *FinalizeReport {
	return h.noFinalize(artifactID)
}

func (h *reqHandler) MarkStepDone(artifactID, stepNumber string) error {
	return fmt.Errorf("%w: REQ", ErrStepsUnsupported)
}
