// Package index implements the artifact ledger: an append-friendly text file
// (index.md) at the repository root mapping sequential document IDs to
// artifact IDs plus metadata. The ledger is the authoritative record of
// every artifact in the repository; entries are created only through ID
// allocation and mutated only through field-level updates, never deleted.
package index

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// SchemaVersion identifies the ledger record layout.
const SchemaVersion = "1.1"

// ErrDuplicateArtifact indicates an allocation for an artifact ID that is
// already present in the ledger.
var ErrDuplicateArtifact = errors.New("artifact already exists in index")

// Entry is one ledger record.
//
// DocID and the numeric suffix of ArtifactID are independent identifier
// spaces: DocID is the allocation sequence, ArtifactID carries the type.
type Entry struct {
	DocID      int
	ArtifactID string
	Name       string
	Status     string
	IsFile     bool
	Parent     string
}

// Update names the fields of an entry that may change after allocation.
// Nil pointers leave the field untouched.
type Update struct {
	Name   *string
	Status *string
	IsFile *bool
	Parent *string
}

// Filter selects entries by optional criteria.
type Filter struct {
	IsFile *bool
	Status *string
	Parent *string
}

// Store is the filesystem-backed ledger. All mutations are serialized by a
// single mutex; allocation holds it across the read-max/append sequence so
// no two callers ever receive the same DocID.
type Store struct {
	root string

	mu sync.Mutex
}

// New creates a ledger store rooted at the document repository directory.
// The ledger file is created lazily on first allocation.
func New(repoRoot string) *Store {
	return &Store{root: repoRoot}
}

// Path returns the absolute path of the ledger file.
func (s *Store) Path() string {
	return filepath.Join(s.root, "index.md")
}

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.Path()); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating repository root: %w", err)
	}
	preamble := fmt.Sprintf(`# Artifact ID Index

This file tracks all artifacts in the repository with their metadata.
Schema Version: %s

Format: ID,ARTIFACT_ID,NAME,STATUS,IS_FILE,PARENT
- ID: Sequential numeric identifier
- ARTIFACT_ID: Full artifact ID (e.g., PRD-1, REQ-2)
- NAME: Human-readable artifact name (optional)
- STATUS: Current artifact status (optional)
- IS_FILE: true if artifact has own file, false if referenced only
- PARENT: Parent artifact ID for nested artifacts, empty for top-level files

## Artifact Index

`, SchemaVersion)
	if err := os.WriteFile(s.Path(), []byte(preamble), 0o644); err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	return nil
}

// parseLine parses a single ledger line. Lines that are not records (the
// preamble, blank lines, prose) return ok=false.
func parseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, ",") {
		return Entry{}, false
	}

	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	parts, err := r.Read()
	if err != nil {
		parts = strings.Split(line, ",")
	}
	if len(parts) < 2 {
		return Entry{}, false
	}
	for len(parts) < 6 {
		parts = append(parts, "")
	}

	docID, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Entry{}, false
	}
	artifactID := strings.TrimSpace(parts[1])
	if artifactID == "" {
		return Entry{}, false
	}

	// IS_FILE defaults to true for records predating the column.
	isFile := true
	switch strings.ToLower(strings.TrimSpace(parts[4])) {
	case "", "true", "1", "yes":
		isFile = true
	default:
		isFile = false
	}

	return Entry{
		DocID:      docID,
		ArtifactID: artifactID,
		Name:       strings.TrimSpace(parts[2]),
		Status:     strings.TrimSpace(parts[3]),
		IsFile:     isFile,
		Parent:     strings.TrimSpace(parts[5]),
	}, true
}

// formatLine renders an entry as a CSV record without a trailing newline.
func formatLine(e Entry) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	isFile := "false"
	if e.IsFile {
		isFile = "true"
	}
	// csv.Writer always terminates records; trim it off below.
	_ = w.Write([]string{strconv.Itoa(e.DocID), e.ArtifactID, e.Name, e.Status, isFile, e.Parent})
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Store) readAll() ([]Entry, []string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading index: %w", err)
	}
	lines := strings.Split(string(data), "\n")
	var entries []Entry
	for _, line := range lines {
		if e, ok := parseLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries, lines, nil
}

// All returns every ledger entry in file order.
func (s *Store) All() ([]Entry, error) {
	entries, _, err := s.readAll()
	return entries, err
}

// ByArtifactID looks up an entry by artifact ID, case-insensitively.
func (s *Store) ByArtifactID(artifactID string) (Entry, bool, error) {
	entries, err := s.All()
	if err != nil {
		return Entry{}, false, err
	}
	want := strings.ToUpper(artifactID)
	for _, e := range entries {
		if strings.ToUpper(e.ArtifactID) == want {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// ByDocID looks up an entry by its sequential document ID.
func (s *Store) ByDocID(docID int) (Entry, bool, error) {
	entries, err := s.All()
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.DocID == docID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func nextDocID(entries []Entry) int {
	max := 0
	for _, e := range entries {
		if e.DocID > max {
			max = e.DocID
		}
	}
	return max + 1
}

// Add allocates the next document ID and appends a record for artifactID.
// The read-max/append sequence runs under the store's mutex, so concurrent
// allocations always receive distinct, gap-free document IDs. Fails with
// ErrDuplicateArtifact if the artifact ID (case-insensitive) is already
// present.
func (s *Store) Add(artifactID, name, status string, isFile bool, parent string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return 0, err
	}

	entries, _, err := s.readAll()
	if err != nil {
		return 0, err
	}
	want := strings.ToUpper(artifactID)
	for _, e := range entries {
		if strings.ToUpper(e.ArtifactID) == want {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateArtifact, artifactID)
		}
	}

	docID := nextDocID(entries)
	line := formatLine(Entry{
		DocID:      docID,
		ArtifactID: artifactID,
		Name:       name,
		Status:     status,
		IsFile:     isFile,
		Parent:     parent,
	})

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening index for append: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return 0, fmt.Errorf("appending to index: %w", err)
	}
	return docID, nil
}

// AddNext allocates the next document ID and registers "<typeCode>-<docID>"
// in one critical section, so the artifact ID's numeric suffix always equals
// the allocated document ID even under concurrent allocation.
func (s *Store) AddNext(typeCode, name, status string, isFile bool, parent string) (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return 0, "", err
	}

	entries, _, err := s.readAll()
	if err != nil {
		return 0, "", err
	}
	docID := nextDocID(entries)
	artifactID := fmt.Sprintf("%s-%d", typeCode, docID)
	for _, e := range entries {
		if strings.EqualFold(e.ArtifactID, artifactID) {
			return 0, "", fmt.Errorf("%w: %s", ErrDuplicateArtifact, artifactID)
		}
	}

	line := formatLine(Entry{
		DocID:      docID,
		ArtifactID: artifactID,
		Name:       name,
		Status:     status,
		IsFile:     isFile,
		Parent:     parent,
	})
	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("opening index for append: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return 0, "", fmt.Errorf("appending to index: %w", err)
	}
	return docID, artifactID, nil
}

// UpdateEntry applies a field-level update to the entry for artifactID by
// rewriting the whole ledger. Returns false if no entry matches. A crash
// mid-rewrite can corrupt the ledger; records are independent lines, so the
// last successful write wins on the next load.
func (s *Store) UpdateEntry(artifactID string, upd Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, lines, err := s.readAll()
	if err != nil {
		return false, err
	}
	if lines == nil {
		return false, nil
	}

	want := strings.ToUpper(artifactID)
	updated := false
	for i, line := range lines {
		e, ok := parseLine(line)
		if !ok || strings.ToUpper(e.ArtifactID) != want {
			continue
		}
		if upd.Name != nil {
			e.Name = *upd.Name
		}
		if upd.Status != nil {
			e.Status = *upd.Status
		}
		if upd.IsFile != nil {
			e.IsFile = *upd.IsFile
		}
		if upd.Parent != nil {
			e.Parent = *upd.Parent
		}
		lines[i] = formatLine(e)
		updated = true
		break
	}
	if !updated {
		return false, nil
	}

	if err := os.WriteFile(s.Path(), []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return false, fmt.Errorf("rewriting index: %w", err)
	}
	return true, nil
}

// Matching returns entries matching the filter criteria, in file order.
func (s *Store) Matching(f Filter) ([]Entry, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if f.IsFile != nil && e.IsFile != *f.IsFile {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.Parent != nil && e.Parent != *f.Parent {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Children returns the entries whose parent is parentID.
func (s *Store) Children(parentID string) ([]Entry, error) {
	return s.Matching(Filter{Parent: &parentID})
}
