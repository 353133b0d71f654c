// Package repo locates and rewrites artifact content on disk. An artifact is
// either a standalone markdown file or a heading-delimited section embedded
// in a host file; the index decides which, and this package does the
// filesystem work for both shapes.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HendryAvila/respec/internal/artifact"
	"github.com/HendryAvila/respec/internal/header"
	"github.com/HendryAvila/respec/internal/index"
)

var (
	// ErrNotFound indicates an identifier with no index entry.
	ErrNotFound = errors.New("artifact not found")
	// ErrFileNotFound indicates a file artifact whose file is missing.
	ErrFileNotFound = errors.New("no file found for artifact")
	// ErrSectionNotFound indicates a section artifact whose heading was not
	// located in any file.
	ErrSectionNotFound = errors.New("no artifact section found")
	// ErrUpdateNotAllowed indicates a type that forbids direct tool updates.
	ErrUpdateNotAllowed = errors.New("artifact type does not allow direct tool updates")
)

var sectionHeadingPat = regexp.MustCompile(`^\s*###\s+([A-Z]+-\d+)\b`)

// Version identifies the engine release stamped into finalized documents.
const Version = "0.1.0"

// VersionMarkerPat matches the trailing version comment of finalized files.
var VersionMarkerPat = regexp.MustCompile(`<!--\s*respec\s+v[\d.]+\s*-->`)

// VersionFooter returns the comment appended to finalized documents.
func VersionFooter() string {
	return fmt.Sprintf("\n\n<!-- respec v%s -->", Version)
}

// Repository resolves identifiers against the index and reads/writes
// artifact content under the document repository root.
type Repository struct {
	root  string
	reg   *artifact.Registry
	idx   *index.Store
	codec *header.Codec
}

// New creates a repository over root using the given registry, index store
// and header codec.
func New(root string, reg *artifact.Registry, idx *index.Store, codec *header.Codec) *Repository {
	return &Repository{root: root, reg: reg, idx: idx, codec: codec}
}

// Root returns the document repository root directory.
func (r *Repository) Root() string { return r.root }

// Index returns the backing ledger store.
func (r *Repository) Index() *index.Store { return r.idx }

// Registry returns the type registry.
func (r *Repository) Registry() *artifact.Registry { return r.reg }

// Codec returns the managed header codec.
func (r *Repository) Codec() *header.Codec { return r.codec }

// ResolveIdentifier maps a caller-supplied token to a known artifact ID.
// All-digit tokens are document IDs; anything else is uppercased and looked
// up as an artifact ID. The index is authoritative either way.
func (r *Repository) ResolveIdentifier(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrNotFound)
	}

	if isAllDigits(identifier) {
		var docID int
		fmt.Sscanf(identifier, "%d", &docID)
		e, ok, err := r.idx.ByDocID(docID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: no artifact for identifier %q", ErrNotFound, identifier)
		}
		return e.ArtifactID, nil
	}

	candidate := strings.ToUpper(identifier)
	_, ok, err := r.idx.ByArtifactID(candidate)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no artifact for identifier %q", ErrNotFound, identifier)
	}
	return candidate, nil
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// NewArtifactID allocates the next artifact ID for a normalized type and
// records it in the index.
func (r *Repository) NewArtifactID(typeCode, name string, isFile bool, parent string) (string, error) {
	code, err := r.reg.NormalizeType(typeCode)
	if err != nil {
		return "", err
	}
	_, artifactID, err := r.idx.AddNext(code, name, "", isFile, parent)
	if err != nil {
		return "", err
	}
	return artifactID, nil
}

// Artifact is resolved content plus its location and index record.
type Artifact struct {
	ID      string
	Content string
	Path    string
	Entry   index.Entry
}

// Get resolves an identifier and returns the artifact's content. File
// artifacts return the whole file; section artifacts return the heading
// line through the line before the next level-3 heading.
func (r *Repository) Get(identifier string) (*Artifact, error) {
	artifactID, err := r.ResolveIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	e, ok, err := r.idx.ByArtifactID(artifactID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s missing from index", ErrNotFound, artifactID)
	}

	if e.IsFile {
		path, err := r.FindFile(artifactID)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return &Artifact{ID: artifactID, Content: string(data), Path: path, Entry: e}, nil
	}

	path, start, end, lines, err := r.findSection(artifactID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimRight(strings.Join(lines[start:end], "\n"), " \t\n")
	return &Artifact{ID: artifactID, Content: content, Path: path, Entry: e}, nil
}

// FindFile locates the markdown file for a file artifact, trying
// "<ID>_*.md" before "<ID>.md" anywhere under the repository root.
// Traversal is lexicographic, so matches are deterministic.
func (r *Repository) FindFile(artifactID string) (string, error) {
	var prefixedMatch, exactMatch string
	prefix := artifactID + "_"
	exact := artifactID + ".md"

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		if prefixedMatch == "" && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".md") {
			prefixedMatch = path
		}
		if exactMatch == "" && name == exact {
			exactMatch = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching for %s: %w", artifactID, err)
	}
	if prefixedMatch != "" {
		return prefixedMatch, nil
	}
	if exactMatch != "" {
		return exactMatch, nil
	}
	return "", fmt.Errorf("%w: %s", ErrFileNotFound, artifactID)
}

// headingMatches reports whether a line is the level-3 heading opening the
// section for artifactID. The heading token must equal the ID exactly, so
// REQ-1 never claims the REQ-12 section.
func headingMatches(line, artifactID string) bool {
	m := sectionHeadingPat.FindStringSubmatch(line)
	return m != nil && m[1] == artifactID
}

// findSection scans every markdown file for the artifact's heading and
// returns its host file plus the section's line range [start, end).
func (r *Repository) findSection(artifactID string) (path string, start, end int, lines []string, err error) {
	err = filepath.WalkDir(r.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return walkErr
		}
		if path != "" {
			return fs.SkipAll
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		fileLines := strings.Split(string(data), "\n")
		for i, line := range fileLines {
			if !headingMatches(line, artifactID) {
				continue
			}
			secEnd := len(fileLines)
			for j := i + 1; j < len(fileLines); j++ {
				trimmed := strings.TrimSpace(fileLines[j])
				if strings.HasPrefix(trimmed, "### ") && !headingMatches(fileLines[j], artifactID) {
					secEnd = j
					break
				}
			}
			path, start, end, lines = p, i, secEnd, fileLines
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", 0, 0, nil, fmt.Errorf("searching for section %s: %w", artifactID, err)
	}
	if path == "" {
		return "", 0, 0, nil, fmt.Errorf("%w: %s", ErrSectionNotFound, artifactID)
	}
	return path, start, end, lines, nil
}

// Update replaces an artifact's content, honoring the type's
// can_tool_update capability. Section content missing its own heading gets
// one synthesized from the index's stored name.
func (r *Repository) Update(identifier, newContent string) (*Artifact, error) {
	artifactID, err := r.ResolveIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	e, ok, err := r.idx.ByArtifactID(artifactID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s missing from index", ErrNotFound, artifactID)
	}

	typeCode, err := r.reg.TypeFromID(artifactID)
	if err != nil {
		return nil, err
	}
	if !r.reg.HasCapability(typeCode, "can_tool_update") {
		return nil, fmt.Errorf("%w: %s", ErrUpdateNotAllowed, typeCode)
	}

	if e.IsFile {
		path, err := r.WriteFileContent(artifactID, newContent)
		if err != nil {
			return nil, err
		}
		return &Artifact{ID: artifactID, Content: newContent, Path: path, Entry: e}, nil
	}

	prepared := newContent
	headingPrefix := "### " + artifactID
	if !strings.HasPrefix(strings.TrimLeft(prepared, " \t\n"), headingPrefix) {
		headingLine := headingPrefix
		if e.Name != "" {
			headingLine += ": " + e.Name
		}
		prepared = headingLine + "\n" + strings.TrimLeft(newContent, "\n")
	}
	path, err := r.WriteSectionContent(artifactID, prepared)
	if err != nil {
		return nil, err
	}
	return &Artifact{ID: artifactID, Content: prepared, Path: path, Entry: e}, nil
}

// WriteFileContent overwrites a file artifact's file in place. It bypasses
// the can_tool_update gate; callers doing engine-driven propagation use it
// directly.
func (r *Repository) WriteFileContent(artifactID, content string) (string, error) {
	path, err := r.FindFile(artifactID)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// WriteSectionContent splices new content over a section artifact's line
// range inside its host file. Also bypasses the can_tool_update gate.
func (r *Repository) WriteSectionContent(artifactID, content string) (string, error) {
	path, start, end, lines, err := r.findSection(artifactID)
	if err != nil {
		return "", err
	}
	newLines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	updated := make([]string, 0, len(lines)-(end-start)+len(newLines))
	updated = append(updated, lines[:start]...)
	updated = append(updated, newLines...)
	updated = append(updated, lines[end:]...)
	if err := os.WriteFile(path, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Reference is one content line mentioning a searched artifact, attributed
// to the artifact (section or file) that contains it.
type Reference struct {
	ContainerID string
	Line        string
}

// ScanContentReferences walks every markdown file (the ledger excluded) and
// collects lines mentioning targetID as a whole word. Each hit is
// attributed to the enclosing section artifact when inside a level-3
// heading span, otherwise to the file-level artifact. Self-references are
// dropped, and containers unknown to the index are filtered out.
func (r *Repository) ScanContentReferences(targetID string) (map[string][]string, error) {
	entries, err := r.idx.All()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ArtifactID] = true
	}

	idPat, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(targetID) + `\b`)
	if err != nil {
		return nil, err
	}

	refs := make(map[string][]string)
	walkErr := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") || d.Name() == "index.md" {
			return err
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		content := string(data)
		lines := strings.Split(content, "\n")

		fileArtifactID := ""
		if _, id, ok := r.codec.ExtractTypeAndID(content); ok {
			fileArtifactID = id
		}

		type span struct {
			id         string
			start, end int
		}
		var spans []span
		for i, line := range lines {
			if m := sectionHeadingPat.FindStringSubmatch(line); m != nil {
				if n := len(spans); n > 0 {
					spans[n-1].end = i - 1
				}
				spans = append(spans, span{id: strings.ToUpper(m[1]), start: i, end: len(lines) - 1})
			}
		}

		container := func(lineNo int) string {
			for _, s := range spans {
				if s.start <= lineNo && lineNo <= s.end {
					return s.id
				}
			}
			return fileArtifactID
		}

		for i, line := range lines {
			if strings.TrimSpace(line) == "" || !idPat.MatchString(line) {
				continue
			}
			containerID := container(i)
			if containerID == "" || strings.EqualFold(containerID, targetID) {
				continue
			}
			refs[containerID] = append(refs[containerID], strings.TrimSpace(line))
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanning references to %s: %w", targetID, walkErr)
	}

	for id := range refs {
		if !known[id] {
			delete(refs, id)
		}
	}
	return refs, nil
}

// SearchByType returns index entries of one type, optionally filtered by a
// comma-separated status list (case-insensitive) and by parent.
func (r *Repository) SearchByType(typeCode, status, parent string) ([]index.Entry, error) {
	code, err := r.reg.NormalizeType(typeCode)
	if err != nil {
		return nil, err
	}

	var statuses map[string]bool
	if strings.TrimSpace(status) != "" {
		statuses = make(map[string]bool)
		for _, s := range strings.Split(status, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				statuses[s] = true
			}
		}
	}

	entries, err := r.idx.All()
	if err != nil {
		return nil, err
	}
	var out []index.Entry
	for _, e := range entries {
		entryType, _, found := strings.Cut(e.ArtifactID, "-")
		if !found || !strings.EqualFold(entryType, code) {
			continue
		}
		if statuses != nil && !statuses[strings.ToUpper(e.Status)] {
			continue
		}
		if parent != "" && e.Parent != parent {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
