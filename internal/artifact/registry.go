// Package artifact defines the type registry: the static catalog of artifact
// types, their capabilities, the status vocabulary, and the managed-header
// schema. The registry is loaded once at startup from declarative JSON and is
// read-only for the process lifetime; every component receives it by
// injection rather than reaching for package globals.
package artifact

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

//go:embed registry.json
var defaultRegistryJSON []byte

// Sentinel errors for type and status validation.
var (
	ErrUnknownType          = errors.New("unknown artifact type")
	ErrInvalidIDFormat      = errors.New("invalid artifact ID format")
	ErrInvalidStatusForType = errors.New("invalid status for artifact type")
)

// TypeInfo describes a single artifact type. Immutable after load.
type TypeInfo struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TemplateName string `json:"template_name"`

	// HeaderFormat is the title-line template with {id} and {description}
	// placeholders, e.g. "# PRD-{id}: {description}".
	HeaderFormat string `json:"header_format"`

	IsFile        bool `json:"is_file"`
	HasSteps      bool `json:"has_steps"`
	CanToolUpdate bool `json:"can_tool_update"`

	AddableNestedTypes []string `json:"addable_nested_artifact_types,omitempty"`
	ReferenceTypes     []string `json:"reference_types,omitempty"`

	// StatusMoveStatuses lists statuses whose assignment moves the
	// artifact's file into a status-named subdirectory.
	StatusMoveStatuses []string `json:"status_update_file_move,omitempty"`

	// ValidStatuses overrides the global status vocabulary when set.
	ValidStatuses []string `json:"valid_statuses,omitempty"`
}

// StatusInfo describes one entry of the status vocabulary.
type StatusInfo struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HeaderItemKind distinguishes atomic-replace from list-append fields.
type HeaderItemKind string

const (
	Atomic HeaderItemKind = "atomic"
	List   HeaderItemKind = "list"
)

// HeaderItem describes one managed metadata field rendered as a
// backtick-label line (`Label`: value) after an artifact's title.
type HeaderItem struct {
	Key           string         `json:"key"`
	Label         string         `json:"label"`
	Kind          HeaderItemKind `json:"kind"`
	ArtifactTypes []string       `json:"artifact_types"`
}

type registryConfig struct {
	ArtifactTypes      []TypeInfo   `json:"artifact_types"`
	Statuses           []StatusInfo `json:"statuses"`
	ManagedHeaderItems []HeaderItem `json:"managed_header_items"`
}

// Registry is the loaded, immutable type catalog. Declaration order in the
// configuration is significant: header-template matching and header
// serialization both follow it.
type Registry struct {
	types       []TypeInfo
	byCode      map[string]int
	statuses    []StatusInfo
	statusIdx   map[string]int
	headerItems []HeaderItem

	provisionalPat *regexp.Regexp
}

// NewRegistry loads the embedded default configuration.
func NewRegistry() (*Registry, error) {
	return parseRegistry(defaultRegistryJSON)
}

// NewRegistryFromFile loads a registry configuration from an override path.
func NewRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry config: %w", err)
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var cfg registryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing registry config: %w", err)
	}
	if len(cfg.ArtifactTypes) == 0 {
		return nil, errors.New("registry config has no artifact types")
	}
	if len(cfg.Statuses) == 0 {
		return nil, errors.New("registry config has no statuses")
	}

	r := &Registry{
		types:       cfg.ArtifactTypes,
		byCode:      make(map[string]int, len(cfg.ArtifactTypes)),
		statuses:    cfg.Statuses,
		statusIdx:   make(map[string]int, len(cfg.Statuses)),
		headerItems: cfg.ManagedHeaderItems,
	}

	codes := make([]string, 0, len(r.types))
	for i, ti := range r.types {
		code := strings.ToUpper(ti.Code)
		if code == "" {
			return nil, fmt.Errorf("artifact type at position %d has no code", i)
		}
		if _, dup := r.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate artifact type %q", code)
		}
		r.byCode[code] = i
		codes = append(codes, regexp.QuoteMeta(code))
	}
	for i, st := range r.statuses {
		r.statusIdx[strings.ToUpper(st.Code)] = i
	}
	for _, item := range r.headerItems {
		if item.Kind != Atomic && item.Kind != List {
			return nil, fmt.Errorf("header item %q has unknown kind %q", item.Key, item.Kind)
		}
	}

	// One pattern matches provisional tokens for every registered type.
	r.provisionalPat = regexp.MustCompile(
		`(?i)\b(` + strings.Join(codes, "|") + `)-PROVISIONAL(\d+)\b`)

	return r, nil
}

// Types returns all type descriptors in declaration order.
func (r *Registry) Types() []TypeInfo {
	out := make([]TypeInfo, len(r.types))
	copy(out, r.types)
	return out
}

// TypeCodes returns the type codes in declaration order.
func (r *Registry) TypeCodes() []string {
	codes := make([]string, len(r.types))
	for i, ti := range r.types {
		codes[i] = ti.Code
	}
	return codes
}

// IsValidType reports whether code names a registered type (case-insensitive).
func (r *Registry) IsValidType(code string) bool {
	_, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// TypeInfo returns the descriptor for code.
func (r *Registry) TypeInfo(code string) (TypeInfo, error) {
	i, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return TypeInfo{}, fmt.Errorf("%w: %q (valid types: %s)",
			ErrUnknownType, code, strings.Join(r.TypeCodes(), ", "))
	}
	return r.types[i], nil
}

// NormalizeType validates code and returns its canonical uppercase form.
func (r *Registry) NormalizeType(code string) (string, error) {
	ti, err := r.TypeInfo(code)
	if err != nil {
		return "", err
	}
	return ti.Code, nil
}

// HasCapability reports a boolean capability flag for the type. Unknown
// types have no capabilities.
func (r *Registry) HasCapability(code, capability string) bool {
	ti, err := r.TypeInfo(code)
	if err != nil {
		return false
	}
	switch capability {
	case "has_steps":
		return ti.HasSteps
	case "can_tool_update":
		return ti.CanToolUpdate
	case "is_file":
		return ti.IsFile
	default:
		return false
	}
}

// ValidStatuses returns the global status vocabulary in declaration order.
func (r *Registry) ValidStatuses() []string {
	codes := make([]string, len(r.statuses))
	for i, st := range r.statuses {
		codes[i] = st.Code
	}
	return codes
}

// StatusInfo returns the descriptor for a global status code.
func (r *Registry) StatusInfo(code string) (StatusInfo, bool) {
	i, ok := r.statusIdx[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return StatusInfo{}, false
	}
	return r.statuses[i], true
}

// ValidStatusesFor returns the valid statuses for a type: the type's own
// list when declared, else the global vocabulary.
func (r *Registry) ValidStatusesFor(code string) ([]string, error) {
	ti, err := r.TypeInfo(code)
	if err != nil {
		return nil, err
	}
	if len(ti.ValidStatuses) > 0 {
		out := make([]string, len(ti.ValidStatuses))
		copy(out, ti.ValidStatuses)
		return out, nil
	}
	return r.ValidStatuses(), nil
}

// NormalizeStatusFor validates status against the type's valid set and
// returns its canonical uppercase form. The error enumerates the valid
// statuses so callers can surface them directly.
func (r *Registry) NormalizeStatusFor(status, typeCode string) (string, error) {
	valid, err := r.ValidStatusesFor(typeCode)
	if err != nil {
		return "", err
	}
	want := strings.ToUpper(strings.TrimSpace(status))
	for _, s := range valid {
		if s == want {
			return want, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not valid for %s (valid statuses: %s)",
		ErrInvalidStatusForType, status, typeCode, strings.Join(valid, ", "))
}

// HeaderItems returns every managed header item in declaration order.
func (r *Registry) HeaderItems() []HeaderItem {
	out := make([]HeaderItem, len(r.headerItems))
	copy(out, r.headerItems)
	return out
}

// HeaderItemsFor returns the managed header items applicable to the given
// type, in declaration order.
func (r *Registry) HeaderItemsFor(typeCode string) []HeaderItem {
	code := strings.ToUpper(strings.TrimSpace(typeCode))
	var out []HeaderItem
	for _, item := range r.headerItems {
		for _, t := range item.ArtifactTypes {
			if t == code {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

var idPat = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)

// TypeFromID extracts and validates the type component of a full artifact
// ID such as "PRD-1" or "TASKPRD-12".
func (r *Registry) TypeFromID(artifactID string) (string, error) {
	m := idPat.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(artifactID)))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIDFormat, artifactID)
	}
	return r.NormalizeType(m[1])
}

// IDValidation is the detailed outcome of ValidateID.
type IDValidation struct {
	Valid       bool
	ArtifactID  string
	Type        string
	Number      int
	Err         string
	Suggestions []string
}

// ValidateID checks an artifact ID against the TYPE-NUMBER format and the
// registered types. Invalid inputs come back with corrective suggestions
// rather than a bare rejection.
func (r *Registry) ValidateID(artifactID string) IDValidation {
	res := IDValidation{ArtifactID: artifactID}

	trimmed := strings.TrimSpace(artifactID)
	if trimmed == "" {
		res.Err = "artifact ID cannot be empty"
		return res
	}

	upper := strings.ToUpper(trimmed)
	m := idPat.FindStringSubmatch(upper)
	if m == nil {
		res.Err = "invalid artifact ID format; expected TYPE-NUMBER (e.g. PRD-1, TASKPRD-12)"
		if r.IsValidType(upper) {
			res.Suggestions = append(res.Suggestions, fmt.Sprintf("did you mean %q?", upper+"-1"))
		} else {
			for _, code := range r.TypeCodes() {
				if strings.HasPrefix(upper, code) {
					res.Suggestions = append(res.Suggestions, fmt.Sprintf("did you mean %q?", code+"-1"))
				}
			}
		}
		if len(res.Suggestions) == 0 {
			res.Suggestions = append(res.Suggestions,
				"valid artifact types: "+strings.Join(r.TypeCodes(), ", "))
		}
		return res
	}

	typeCode, numStr := m[1], m[2]
	num, err := strconv.Atoi(numStr)
	if err != nil || num <= 0 {
		res.Err = fmt.Sprintf("artifact number must be positive, got %s", numStr)
		res.Suggestions = append(res.Suggestions, fmt.Sprintf("try %q instead", typeCode+"-1"))
		return res
	}

	if !r.IsValidType(typeCode) {
		res.Err = fmt.Sprintf("invalid artifact type %q; valid types: %s",
			typeCode, strings.Join(r.TypeCodes(), ", "))
		for _, code := range r.TypeCodes() {
			if strings.Contains(code, typeCode) || strings.Contains(typeCode, code) {
				res.Suggestions = append(res.Suggestions,
					fmt.Sprintf("did you mean %q?", fmt.Sprintf("%s-%d", code, num)))
			}
		}
		return res
	}

	res.Valid = true
	res.Type = typeCode
	res.Number = num
	res.ArtifactID = fmt.Sprintf("%s-%d", typeCode, num)
	return res
}

// NormalizeID validates an artifact ID and returns its canonical form, or
// an ErrInvalidIDFormat error carrying the validation detail.
func (r *Registry) NormalizeID(artifactID string) (string, error) {
	v := r.ValidateID(artifactID)
	if !v.Valid {
		msg := v.Err
		if len(v.Suggestions) > 0 {
			msg += " (" + strings.Join(v.Suggestions, "; ") + ")"
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidIDFormat, msg)
	}
	return v.ArtifactID, nil
}
