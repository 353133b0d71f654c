package handler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/respec/internal/repo"
)

var acceptanceHeadingPat = regexp.MustCompile(`(?m)^\s*## Acceptance Tests\s*$`)
var level2HeadingPat = regexp.MustCompile(`(?m)^\s*##\s+`)

// prdHandler owns PRD files: status moves relocate the file into a
// status-named directory, and finalization initializes the PRD and its
// nested REQs.
type prdHandler struct {
	base
}

func (h *prdHandler) UpdateStatusContent(artifactID, status string) (string, error) {
	return h.setHeaderStatus(artifactID, status)
}

func (h *prdHandler) UpdateStatus(artifactID, status string) *StatusReport {
	rep := h.updateStatusTemplate(artifactID, status, h.setHeaderStatus)
	h.applyFileMove(rep, artifactID, status)
	return rep
}

func (h *prdHandler) MarkStepDone(artifactID, stepNumber string) error {
	return fmt.Errorf("%w: PRD", ErrStepsUnsupported)
}

func (h *prdHandler) Finalize(artifactID string, mapping map[string]string) *FinalizeReport {
	rep := &FinalizeReport{HandlerType: "PRD", ArtifactID: artifactID}

	if st := h.UpdateStatus(artifactID, "NEW"); st.Success {
		rep.act("updated %s status to NEW", artifactID)
	} else {
		rep.fail("failed to update %s status: %s", artifactID, st.Message())
	}

	var reqIDs []string
	for _, finalID := range mapping {
		if strings.HasPrefix(finalID, "REQ-") {
			reqIDs = append(reqIDs, finalID)
		}
	}
	sort.Strings(reqIDs)

	rh := &reqHandler{base{repo: h.repo, typeCode: "REQ"}}
	for _, reqID := range reqIDs {
		if st := rh.UpdateStatus(reqID, "NEW"); st.Success {
			rep.act("updated %s status to NEW", reqID)
			rep.UpdatedReqs = append(rep.UpdatedReqs, reqID)
		} else {
			rep.fail("failed to set %s to NEW: %s", reqID, st.Message())
		}
	}
	return rep
}

// AddNested inserts nested artifact content under the PRD's
// "## Acceptance Tests" section, creating the section when missing. New
// content lands at the end of the section, before the next level-2 heading
// or the version footer.
func (h *prdHandler) AddNested(parentArtifactID, nestedType, content string) (string, error) {
	reg := h.repo.Registry()
	normalized, err := reg.NormalizeType(nestedType)
	if err != nil {
		return "", err
	}
	ti, err := reg.TypeInfo("PRD")
	if err != nil {
		return "", err
	}
	allowed := false
	for _, t := range ti.AddableNestedTypes {
		if t == normalized {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("type %s not allowed in PRD (allowed: %s)",
			normalized, strings.Join(ti.AddableNestedTypes, ", "))
	}

	a, err := h.repo.Get(parentArtifactID)
	if err != nil {
		return "", err
	}

	updated := insertIntoAcceptanceTests(a.Content, content)
	if _, err := h.repo.WriteFileContent(parentArtifactID, updated); err != nil {
		return "", err
	}
	return fmt.Sprintf("added %s content to %s under Acceptance Tests", normalized, parentArtifactID), nil
}

func insertIntoAcceptanceTests(text, content string) string {
	content = strings.TrimSpace(content)

	loc := acceptanceHeadingPat.FindStringIndex(text)
	if loc == nil {
		insertion := "\n\n## Acceptance Tests\n\n" + content + "\n"
		if m := repo.VersionMarkerPat.FindStringIndex(text); m != nil {
			return strings.TrimRight(text[:m[0]], " \t\n") + insertion + text[m[0]:]
		}
		return strings.TrimRight(text, " \t\n") + insertion
	}

	// Section runs until the next level-2 heading, else the version
	// footer, else end of document.
	sectionEnd := len(text)
	if m := level2HeadingPat.FindStringIndex(text[loc[1]:]); m != nil {
		sectionEnd = loc[1] + m[0]
	} else if m := repo.VersionMarkerPat.FindStringIndex(text); m != nil {
		sectionEnd = m[0]
	}

	left := strings.TrimRight(text[:sectionEnd], " \t\n")
	right := ""
	if sectionEnd < len(text) {
		right = strings.TrimLeft(text[sectionEnd:], "\n")
	}
	out := left + "\n\n" + content + "\n"
	if right != "" {
		out += "\n" + right
	}
	return out
}
