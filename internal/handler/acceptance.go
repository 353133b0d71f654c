package handler

// testHandler covers acceptance test sections, both user (UACC) and system
// (SACC). A status change is mirrored as an annotation in every REQ that
// lists the test among its covering tests.
type testHandler struct {
	base
}

func (h *testHandler) UpdateStatusContent(artifactID, status string) (string, error) {
	return h.setHeaderStatus(artifactID, status)
}

func (h *testHandler) UpdateStatus(artifactID, status string) *StatusReport {
	rep := h.updateStatusTemplate(artifactID, status, h.setHeaderStatus)
	if rep.Success {
		h.applyCoveringTests(rep, artifactID, status)
	}
	return rep
}

func (h *testHandler) Finalize(artifactID string, mapping map[string]string) *FinalizeReport {
	return h.noFinalize(artifactID)
}

func (h *testHandler) MarkStepDone(artifactID, stepNumber string) error {
	return h.markStepDone(artifactID, stepNumber)
}
