package artifact

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Provisional IDs are transient tokens of the form TYPE-PROVISIONAL<digits>
// that appear in draft content before finalization. They exist only in the
// text being finalized and never enter the index.

var provisionalParsePat = regexp.MustCompile(`^([A-Z]+)-PROVISIONAL(\d+)$`)

// FindProvisionalIDs returns every provisional ID found in text, uppercased,
// deduplicated, and sorted. Matching is case-insensitive with word
// boundaries, restricted to the registered types.
func (r *Registry) FindProvisionalIDs(text string) []string {
	seen := make(map[string]bool)
	for _, m := range r.provisionalPat.FindAllString(text, -1) {
		seen[strings.ToUpper(m)] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParseProvisionalID splits a provisional ID into its type and temporary
// number, validating the type against the registry.
func (r *Registry) ParseProvisionalID(provisionalID string) (typeCode string, tempID int, err error) {
	m := provisionalParsePat.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(provisionalID)))
	if m == nil {
		return "", 0, fmt.Errorf("%w: invalid provisional ID %q", ErrInvalidIDFormat, provisionalID)
	}
	typeCode, err = r.NormalizeType(m[1])
	if err != nil {
		return "", 0, err
	}
	tempID, _ = strconv.Atoi(m[2])
	return typeCode, tempID, nil
}

var provisionalFilenamePat = regexp.MustCompile(`^([A-Z]+)-PROVISIONAL\d*$`)

// ValidateProvisionalFilename checks that a filename follows the
// TYPE-PROVISIONAL<number>.md pattern and returns the artifact type.
func (r *Registry) ValidateProvisionalFilename(filename string) (string, error) {
	stem := strings.TrimSuffix(filename, ".md")
	m := provisionalFilenamePat.FindStringSubmatch(strings.ToUpper(stem))
	if m == nil {
		return "", fmt.Errorf("%w: filename %q does not match TYPE-PROVISIONAL<number>.md",
			ErrInvalidIDFormat, filename)
	}
	return r.NormalizeType(m[1])
}
