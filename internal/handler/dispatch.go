package handler

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/respec/internal/repo"
)

// Dispatch routes operations to the strategy registered for an artifact's
// type. The handler set is closed at construction.
type Dispatch struct {
	repo     *repo.Repository
	handlers map[string]Handler
}

// NewDispatch builds the dispatch table with one strategy per known type.
func NewDispatch(r *repo.Repository) *Dispatch {
	return &Dispatch{
		repo: r,
		handlers: map[string]Handler{
			"PRD":     &prdHandler{base{repo: r, typeCode: "PRD"}},
			"TASKPRD": &taskprdHandler{base{repo: r, typeCode: "TASKPRD"}},
			"REQ":     &reqHandler{base{repo: r, typeCode: "REQ"}},
			"TASK":    &taskHandler{base{repo: r, typeCode: "TASK"}},
			"UACC":    &testHandler{base{repo: r, typeCode: "UACC"}},
			"SACC":    &testHandler{base{repo: r, typeCode: "SACC"}},
		},
	}
}

// For returns the strategy for a type code, if one is registered.
func (d *Dispatch) For(typeCode string) (Handler, bool) {
	h, ok := d.handlers[strings.ToUpper(strings.TrimSpace(typeCode))]
	return h, ok
}

// ForArtifact returns the strategy for an artifact ID's type.
func (d *Dispatch) ForArtifact(artifactID string) (Handler, error) {
	typeCode, err := d.repo.Registry().TypeFromID(artifactID)
	if err != nil {
		return nil, err
	}
	h, ok := d.For(typeCode)
	if !ok {
		return nil, fmt.Errorf("no handler for artifact type %s", typeCode)
	}
	return h, nil
}

// UpdateArtifactStatus resolves an identifier, validates the status against
// the artifact type's vocabulary, and runs the type's status strategy.
func (d *Dispatch) UpdateArtifactStatus(identifier, status string) (*StatusReport, error) {
	artifactID, err := d.repo.ResolveIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	typeCode, err := d.repo.Registry().TypeFromID(artifactID)
	if err != nil {
		return nil, err
	}
	normalized, err := d.repo.Registry().NormalizeStatusFor(status, typeCode)
	if err != nil {
		return nil, err
	}
	h, err := d.ForArtifact(artifactID)
	if err != nil {
		return nil, err
	}
	return h.UpdateStatus(artifactID, normalized), nil
}

// Finalize runs the post-finalization hook for the main artifact's type.
func (d *Dispatch) Finalize(typeCode, artifactID string, mapping map[string]string) (*FinalizeReport, bool) {
	h, ok := d.For(typeCode)
	if !ok {
		return nil, false
	}
	return h.Finalize(artifactID, mapping), true
}

// MarkStepDone resolves an identifier and flips the numbered step checkbox,
// provided the type tracks steps.
func (d *Dispatch) MarkStepDone(identifier, stepNumber string) error {
	artifactID, err := d.repo.ResolveIdentifier(identifier)
	if err != nil {
		return err
	}
	h, err := d.ForArtifact(artifactID)
	if err != nil {
		return err
	}
	return h.MarkStepDone(artifactID, stepNumber)
}

// AddReference appends refID to the target's REFERENCED_BY header after
// checking the target type accepts references of the ref's type.
func (d *Dispatch) AddReference(targetIdentifier, refArtifactID string) (string, error) {
	targetID, err := d.repo.ResolveIdentifier(targetIdentifier)
	if err != nil {
		return "", err
	}
	reg := d.repo.Registry()
	targetType, err := reg.TypeFromID(targetID)
	if err != nil {
		return "", err
	}
	ti, err := reg.TypeInfo(targetType)
	if err != nil {
		return "", err
	}
	if len(ti.ReferenceTypes) == 0 {
		return "", fmt.Errorf("artifact type %s does not support references", targetType)
	}
	refType, err := reg.TypeFromID(refArtifactID)
	if err != nil {
		return "", err
	}
	allowed := false
	for _, t := range ti.ReferenceTypes {
		if t == refType {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("reference type %s not allowed for %s (allowed: %s)",
			refType, targetType, strings.Join(ti.ReferenceTypes, ", "))
	}

	a, err := d.repo.Get(targetID)
	if err != nil {
		return "", err
	}
	updated, err := d.repo.Codec().Update(a.Content, map[string]string{"REFERENCED_BY": refArtifactID})
	if err != nil {
		return "", err
	}
	if a.Entry.IsFile {
		if _, err := d.repo.WriteFileContent(targetID, updated); err != nil {
			return "", err
		}
	} else {
		if _, err := d.repo.WriteSectionContent(targetID, updated); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("added reference %s to %s", refArtifactID, targetID), nil
}

// nestedAdder is the optional capability of inserting nested artifact
// content into a host document.
type nestedAdder interface {
	AddNested(parentArtifactID, nestedType, content string) (string, error)
}

// AddNested inserts nested artifact content (UACC/SACC) into a parent
// document, for parent types that support it.
func (d *Dispatch) AddNested(parentIdentifier, nestedType, content string) (string, error) {
	parentID, err := d.repo.ResolveIdentifier(parentIdentifier)
	if err != nil {
		return "", err
	}
	h, err := d.ForArtifact(parentID)
	if err != nil {
		return "", err
	}
	adder, ok := h.(nestedAdder)
	if !ok {
		typeCode, _ := d.repo.Registry().TypeFromID(parentID)
		return "", fmt.Errorf("artifact type %s does not support nested artifacts", typeCode)
	}
	return adder.AddNested(parentID, nestedType, content)
}
