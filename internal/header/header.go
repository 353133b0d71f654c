// Package header parses and rewrites managed metadata headers: the
// backtick-labelled lines (`Status`: DRAFT) that follow an artifact's title
// line. Which items apply to an artifact, and whether a value replaces or
// merges, comes from the type registry.
package header

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/respec/internal/artifact"
)

// ErrUnparsableHeader indicates content whose title line matches no known
// artifact header format.
var ErrUnparsableHeader = errors.New("could not parse artifact header")

var itemLinePat = regexp.MustCompile("^`([^`]+)`:\\s*(.+)$")

// Codec reads and writes managed headers for one registry's type catalog.
type Codec struct {
	reg *artifact.Registry

	// titlePats maps type code to the compiled header_format pattern,
	// tried in registry declaration order via typeOrder.
	titlePats map[string]*regexp.Regexp
	typeOrder []string
}

// NewCodec compiles the header format of every registered type.
func NewCodec(reg *artifact.Registry) (*Codec, error) {
	c := &Codec{
		reg:       reg,
		titlePats: make(map[string]*regexp.Regexp),
	}
	for _, ti := range reg.Types() {
		if ti.HeaderFormat == "" {
			continue
		}
		pat, err := compileFormat(ti.HeaderFormat)
		if err != nil {
			return nil, fmt.Errorf("header format for %s: %w", ti.Code, err)
		}
		c.titlePats[ti.Code] = pat
		c.typeOrder = append(c.typeOrder, ti.Code)
	}
	return c, nil
}

// compileFormat turns a header format template into a matching pattern,
// e.g. "### REQ-{id}: {description}" matches "### REQ-7: Session timeout".
// The match is a prefix match from the start of the line.
func compileFormat(format string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(format)
	escaped = strings.ReplaceAll(escaped, `\{id\}`, `(\d+)`)
	escaped = strings.ReplaceAll(escaped, `\{description\}`, `(.+)`)
	return regexp.Compile("^" + escaped)
}

// ExtractTypeAndID matches the first line of content against every known
// header format and returns the artifact's type code and full ID.
func (c *Codec) ExtractTypeAndID(content string) (typeCode, artifactID string, ok bool) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) == 0 {
		return "", "", false
	}
	first := strings.TrimSpace(lines[0])
	for _, code := range c.typeOrder {
		if m := c.titlePats[code].FindStringSubmatch(first); m != nil {
			return code, fmt.Sprintf("%s-%s", code, m[1]), true
		}
	}
	return "", "", false
}

// TitleFor renders a title line from a type's header format.
func (c *Codec) TitleFor(typeCode string, num int, description string) (string, error) {
	ti, err := c.reg.TypeInfo(typeCode)
	if err != nil {
		return "", err
	}
	line := strings.ReplaceAll(ti.HeaderFormat, "{id}", fmt.Sprintf("%d", num))
	line = strings.ReplaceAll(line, "{description}", description)
	return line, nil
}

// Block is the parsed form of an artifact: title line, managed header
// values keyed by item key, and the unmanaged body.
type Block struct {
	Title string
	Items map[string]string
	Body  string
}

// Parse splits content into title, managed headers, and body. The artifact
// type is inferred from the title line; content with an unrecognized title
// yields an empty item map with everything after the first line as body.
//
// Header scanning stops at the first line that is neither blank, a known
// managed item, nor header-shaped. A backtick-labelled line whose label is
// not managed for the type also ends the header and stays in the body.
func (c *Codec) Parse(content string) Block {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return Block{Items: map[string]string{}}
	}

	b := Block{
		Title: strings.TrimSpace(lines[0]),
		Items: map[string]string{},
	}

	typeCode, _, ok := c.ExtractTypeAndID(content)
	if !ok {
		b.Body = strings.Join(lines[1:], "\n")
		return b
	}
	applicable := c.reg.HeaderItemsFor(typeCode)

	bodyStart := 1
scan:
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			bodyStart = i + 1
			continue
		}
		m := itemLinePat.FindStringSubmatch(line)
		if m == nil {
			break
		}
		label, value := m[1], m[2]
		for _, item := range applicable {
			if strings.TrimSuffix(item.Label, ":") == label {
				b.Items[item.Key] = strings.TrimSpace(value)
				bodyStart = i + 1
				continue scan
			}
		}
		break
	}

	b.Body = strings.Join(lines[bodyStart:], "\n")
	return b
}

// Update applies header value changes to content and returns the rebuilt
// artifact text. Atomic items are replaced. List items merge: the new
// comma-separated members are appended after the existing ones, skipping
// members already present, preserving order. Keys not applicable to the
// artifact's type are ignored.
func (c *Codec) Update(content string, updates map[string]string) (string, error) {
	return c.apply(content, updates, false)
}

// Set is Update with replace semantics for list items: the new value
// replaces the stored list wholesale instead of merging into it.
func (c *Codec) Set(content string, updates map[string]string) (string, error) {
	return c.apply(content, updates, true)
}

func (c *Codec) apply(content string, updates map[string]string, replaceLists bool) (string, error) {
	b := c.Parse(content)
	if b.Title == "" {
		return "", ErrUnparsableHeader
	}
	typeCode, _, ok := c.ExtractTypeAndID(content)
	if !ok {
		return "", fmt.Errorf("%w: unrecognized title %q", ErrUnparsableHeader, b.Title)
	}
	applicable := c.reg.HeaderItemsFor(typeCode)

	applicableKeys := make(map[string]artifact.HeaderItem, len(applicable))
	for _, item := range applicable {
		applicableKeys[item.Key] = item
	}

	for key, newValue := range updates {
		item, ok := applicableKeys[key]
		if !ok {
			continue
		}
		if item.Kind == artifact.List && !replaceLists {
			if existing, has := b.Items[key]; has {
				b.Items[key] = MergeList(existing, newValue)
				continue
			}
		}
		b.Items[key] = newValue
	}

	var out []string
	out = append(out, b.Title)
	for _, item := range applicable {
		if value, has := b.Items[item.Key]; has {
			out = append(out, fmt.Sprintf("`%s`: %s", strings.TrimSuffix(item.Label, ":"), value))
		}
	}
	if strings.TrimSpace(b.Body) != "" {
		out = append(out, b.Body)
	}
	return strings.Join(out, "\n"), nil
}

// MergeList unions two comma-separated value lists, keeping the existing
// member order and appending only members not already present.
func MergeList(existing, additions string) string {
	combined := SplitList(existing)
	seen := make(map[string]bool, len(combined))
	for _, v := range combined {
		seen[v] = true
	}
	for _, v := range SplitList(additions) {
		if !seen[v] {
			combined = append(combined, v)
			seen[v] = true
		}
	}
	return strings.Join(combined, ",")
}

// SplitList splits a comma-separated header value into trimmed members,
// dropping empties.
func SplitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
