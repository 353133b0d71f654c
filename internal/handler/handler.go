// Package handler implements the per-type strategies that run when an
// artifact changes status or gets finalized. Each strategy updates the
// ledger, rewrites the artifact's own managed header, and propagates
// derived updates to related artifacts (parent PRDs, implementing tasks,
// covering tests). Propagation is best-effort: each step reports its own
// outcome and completed writes are never rolled back.
package handler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStepNotFound indicates a step number with no open checkbox line, either
// absent or already marked done.
var ErrStepNotFound = errors.New("step not found or already marked as done")

// ErrStepsUnsupported indicates a type without step tracking.
var ErrStepsUnsupported = errors.New("artifact type does not support step marking")

// Handler is the strategy for one artifact type.
//
// UpdateStatus is the template operation: ledger first, then the artifact's
// own content, then any type-specific propagation, with all outcomes
// combined into one report. UpdateStatusContent is the content step alone.
type Handler interface {
	UpdateStatus(artifactID, status string) *StatusReport
	UpdateStatusContent(artifactID, status string) (string, error)
	Finalize(artifactID string, mapping map[string]string) *FinalizeReport
	MarkStepDone(artifactID, stepNumber string) error
}

// StatusReport is the combined outcome of a status update. A ledger failure
// is a warning; a content failure marks the whole report failed but does
// not undo the ledger write.
type StatusReport struct {
	ArtifactID string
	Status     string
	Success    bool
	Messages   []string
}

// Message flattens the per-step messages into one line.
func (r *StatusReport) Message() string {
	return strings.Join(r.Messages, "; ")
}

// FinalizeReport is the outcome of a post-finalization hook.
type FinalizeReport struct {
	HandlerType string
	ArtifactID  string
	Actions     []string
	UpdatedReqs []string
	Errors      []string
}

// Completed reports whether every propagation step succeeded.
func (r *FinalizeReport) Completed() bool {
	return len(r.Errors) == 0
}

func (r *FinalizeReport) act(format string, args ...any) {
	r.Actions = append(r.Actions, fmt.Sprintf(format, args...))
}

func (r *FinalizeReport) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// cleanMember strips a trailing " (STATUS)" annotation from a list member,
// leaving the bare artifact ID.
func cleanMember(member string) string {
	if i := strings.Index(member, " ("); i >= 0 {
		return strings.TrimSpace(member[:i])
	}
	return strings.TrimSpace(member)
}
