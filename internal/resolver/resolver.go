// Package resolver turns provisional drafts into registered artifacts. A
// draft carries TYPE-PROVISIONAL<n> tokens; resolution assigns each token a
// final sequential ID from the index, rewrites every mention in the content,
// and hands the main artifact to its type strategy for post-processing.
package resolver

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/respec/internal/handler"
	"github.com/HendryAvila/respec/internal/repo"
)

// ErrDraftNotFound indicates the named draft is not in the provisional store.
var ErrDraftNotFound = fmt.Errorf("provisional draft not found")

var (
	stepRefTailPat = regexp.MustCompile(`PROVISIONAL(\d+)$`)
	finalNumPat    = regexp.MustCompile(`-(\d+)$`)
	testsLinePat   = regexp.MustCompile(`^REQ-\d+$`)
	suffixCleanPat = regexp.MustCompile(`[^a-z0-9]+`)
)

// Resolver binds the document repository, the type strategies, and the
// provisional store directory.
type Resolver struct {
	repo      *repo.Repository
	dispatch  *handler.Dispatch
	provStore string
}

func New(r *repo.Repository, d *handler.Dispatch, provStore string) *Resolver {
	return &Resolver{repo: r, dispatch: d, provStore: provStore}
}

// FinalizeResult reports one draft finalization.
type FinalizeResult struct {
	SourceFilename string
	Target         string // main artifact ID, empty when no tokens were found
	TargetPath     string
	Mapping        map[string]string // provisional ID -> final ID
	Names          map[string]string // final ID -> extracted name
	Handler        *handler.FinalizeReport
}

// Finalize locates a draft in the provisional store, assigns final IDs to
// every provisional token, writes the finalized document (with version
// footer) into the repository root, deletes the draft, and runs the main
// artifact type's post-finalization hook. A draft without tokens is left in
// place and reported with an empty mapping.
func (rv *Resolver) Finalize(draftName, fileNameSuffix string) (*FinalizeResult, error) {
	draftPath, err := rv.findDraft(draftName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(draftPath)
	if err != nil {
		return nil, err
	}
	content := string(data)

	mapping, updated, names := rv.assignIDs(content)
	res := &FinalizeResult{
		SourceFilename: filepath.Base(draftPath),
		Mapping:        mapping,
		Names:          names,
	}
	if len(mapping) == 0 {
		return res, nil
	}

	targetName := targetFilename(filepath.Base(draftPath), mapping, fileNameSuffix)
	if err := os.MkdirAll(rv.repo.Root(), 0o755); err != nil {
		return nil, err
	}
	targetPath := filepath.Join(rv.repo.Root(), targetName)
	final := strings.TrimRight(updated, " \t\n") + repo.VersionFooter()
	if err := os.WriteFile(targetPath, []byte(final), 0o644); err != nil {
		return nil, err
	}
	if err := os.Remove(draftPath); err != nil {
		return nil, err
	}
	res.TargetPath = targetPath

	mainType, err := rv.repo.Registry().ValidateProvisionalFilename(filepath.Base(draftPath))
	if err != nil {
		log.Printf("Warning: cannot determine main artifact type for %s: %v", draftName, err)
		return res, nil
	}
	for _, pid := range sortedKeys(mapping) {
		if strings.HasPrefix(mapping[pid], mainType+"-") {
			res.Target = mapping[pid]
			break
		}
	}
	if res.Target == "" {
		log.Printf("Warning: no %s artifact among finalized IDs of %s", mainType, draftName)
		return res, nil
	}
	if rep, ok := rv.dispatch.Finalize(mainType, res.Target, mapping); ok {
		res.Handler = rep
	}
	return res, nil
}

// RegisterResult reports an in-place registration of nested tokens.
type RegisterResult struct {
	ArtifactID     string
	Mapping        map[string]string
	Names          map[string]string
	StatusMessages []string
	UpdatedReqs    []string
	Errors         []string
}

// Register scans an already-finalized file artifact for provisional tokens
// (optionally restricted to allowedTypes), assigns final IDs in place, sets
// each new artifact to NEW, and records test coverage declared on *Tests*:
// lines. The file keeps its name.
func (rv *Resolver) Register(identifier string, allowedTypes []string) (*RegisterResult, error) {
	artifactID, err := rv.repo.ResolveIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	a, err := rv.repo.Get(artifactID)
	if err != nil {
		return nil, err
	}
	if !a.Entry.IsFile {
		return nil, fmt.Errorf("artifact %s is not a file, register tokens through its host document", artifactID)
	}

	normalized := make([]string, 0, len(allowedTypes))
	for _, t := range allowedTypes {
		nt, err := rv.repo.Registry().NormalizeType(t)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, nt)
	}

	mapping, updated, names, err := rv.assignNestedIDs(a.Content, artifactID, normalized)
	if err != nil {
		return nil, err
	}
	res := &RegisterResult{ArtifactID: artifactID, Mapping: mapping, Names: names}
	if len(mapping) == 0 {
		return res, nil
	}

	if _, err := rv.repo.WriteFileContent(artifactID, updated); err != nil {
		return nil, err
	}

	for _, pid := range sortedKeys(mapping) {
		newID := mapping[pid]
		rep, err := rv.dispatch.UpdateArtifactStatus(newID, "NEW")
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("status update for %s: %v", newID, err))
			continue
		}
		res.StatusMessages = append(res.StatusMessages, rep.Message())
		if !rep.Success {
			res.Errors = append(res.Errors, fmt.Sprintf("status update for %s failed: %s", newID, rep.Message()))
		}
	}

	rv.applyTestCoverage(res, updated, mapping)
	return res, nil
}

// applyTestCoverage records each new test artifact in the COVERING_TESTS
// list of every REQ its *Tests*: line names. Failures are collected, never
// fatal.
func (rv *Resolver) applyTestCoverage(res *RegisterResult, content string, mapping map[string]string) {
	seen := map[string]bool{}
	for _, pid := range sortedKeys(mapping) {
		newID := mapping[pid]
		section := extractSection(content, newID)
		if section == "" {
			continue
		}
		for _, reqID := range extractTestRequirements(section) {
			if err := rv.addCoveringTest(reqID, newID); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("coverage for %s in %s: %v", newID, reqID, err))
				continue
			}
			if !seen[reqID] {
				seen[reqID] = true
				res.UpdatedReqs = append(res.UpdatedReqs, reqID)
			}
		}
	}
	sort.Strings(res.UpdatedReqs)
}

func (rv *Resolver) addCoveringTest(reqID, testID string) error {
	a, err := rv.repo.Get(reqID)
	if err != nil {
		return err
	}
	block := rv.repo.Codec().Parse(a.Content)

	var tests []string
	for _, t := range strings.Split(block.Items["COVERING_TESTS"], ",") {
		if t = strings.TrimSpace(t); t != "" {
			tests = append(tests, t)
		}
	}
	for _, t := range tests {
		if t == testID {
			return nil
		}
	}
	tests = append(tests, testID)
	sort.Strings(tests)

	updated, err := rv.repo.Codec().Set(a.Content, map[string]string{
		"COVERING_TESTS": strings.Join(tests, ","),
	})
	if err != nil {
		return err
	}
	if a.Entry.IsFile {
		_, err = rv.repo.WriteFileContent(reqID, updated)
	} else {
		_, err = rv.repo.WriteSectionContent(reqID, updated)
	}
	return err
}

// findDraft walks the provisional store for a file with the given name.
func (rv *Resolver) findDraft(name string) (string, error) {
	if _, err := os.Stat(rv.provStore); err != nil {
		return "", fmt.Errorf("%w: provisional store %s: %v", ErrDraftNotFound, rv.provStore, err)
	}
	var found string
	err := filepath.WalkDir(rv.provStore, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w: %q in %s", ErrDraftNotFound, name, rv.provStore)
	}
	return found, nil
}

// assignIDs resolves every token in a draft. Tokens that appear in a # or
// ## heading, or whose type is file-backed, are main artifacts and get
// their final IDs first with no parent; the first main becomes the parent
// of every nested token.
func (rv *Resolver) assignIDs(content string) (map[string]string, string, map[string]string) {
	reg := rv.repo.Registry()
	ids := reg.FindProvisionalIDs(content)

	mapping := map[string]string{}
	names := map[string]string{}
	updated := content
	if len(ids) == 0 {
		return mapping, updated, names
	}

	var mains, nested []string
	for _, id := range ids {
		if rv.isMain(content, id) {
			mains = append(mains, id)
		} else {
			nested = append(nested, id)
		}
	}

	parentForNested := ""
	for _, pid := range mains {
		typeCode, _, err := reg.ParseProvisionalID(pid)
		if err != nil {
			log.Printf("Warning: skipping main token %s: %v", pid, err)
			continue
		}
		name := extractName(content, pid)
		newID, err := rv.repo.NewArtifactID(typeCode, name, true, "")
		if err != nil {
			log.Printf("Warning: skipping main token %s: %v", pid, err)
			continue
		}
		mapping[pid] = newID
		if name != "" {
			names[newID] = name
		}
		if parentForNested == "" {
			parentForNested = newID
		}
		updated = replaceToken(updated, pid, newID)
	}

	for _, pid := range nested {
		typeCode, _, err := reg.ParseProvisionalID(pid)
		if err != nil {
			log.Printf("Warning: skipping nested token %s: %v", pid, err)
			continue
		}
		name := extractName(content, pid)
		newID, err := rv.repo.NewArtifactID(typeCode, name, false, parentForNested)
		if err != nil {
			log.Printf("Warning: skipping nested token %s: %v", pid, err)
			continue
		}
		mapping[pid] = newID
		if name != "" {
			names[newID] = name
		}
		updated = replaceToken(updated, pid, newID)
		updated = replaceStepRefs(updated, pid, newID)
	}
	return mapping, updated, names
}

// assignNestedIDs resolves tokens inside an existing file. Every token is
// nested: no main classification, the host artifact is the parent.
func (rv *Resolver) assignNestedIDs(content, parentID string, allowedTypes []string) (map[string]string, string, map[string]string, error) {
	reg := rv.repo.Registry()

	mapping := map[string]string{}
	names := map[string]string{}
	updated := content
	for _, pid := range reg.FindProvisionalIDs(content) {
		typeCode, _, err := reg.ParseProvisionalID(pid)
		if err != nil {
			continue
		}
		if len(allowedTypes) > 0 && !contains(allowedTypes, typeCode) {
			continue
		}
		name := extractName(content, pid)
		newID, err := rv.repo.NewArtifactID(typeCode, name, false, parentID)
		if err != nil {
			return nil, "", nil, fmt.Errorf("registering %s: %w", pid, err)
		}
		mapping[pid] = newID
		if name != "" {
			names[newID] = name
		}
		updated = replaceToken(updated, pid, newID)
		updated = replaceStepRefs(updated, pid, newID)
	}
	return mapping, updated, names, nil
}

// isMain reports whether a token names a main (file-backed) artifact:
// either it appears in a level-1 or level-2 heading, or its type is
// file-backed by configuration.
func (rv *Resolver) isMain(content, provisionalID string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "###") &&
			strings.Contains(line, provisionalID) {
			return true
		}
	}
	typeCode, _, err := rv.repo.Registry().ParseProvisionalID(provisionalID)
	if err != nil {
		return false
	}
	ti, err := rv.repo.Registry().TypeInfo(typeCode)
	if err != nil {
		return false
	}
	return ti.IsFile
}

// extractName finds the token's heading line ("### UACC-PROVISIONAL1: Name")
// and returns the text after the colon.
func extractName(content, artifactID string) string {
	pat := regexp.MustCompile(`(?i)^#+\s*` + regexp.QuoteMeta(artifactID) + `:\s*(.+)$`)
	for _, line := range strings.Split(content, "\n") {
		if m := pat.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func replaceToken(content, provisionalID, finalID string) string {
	pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(provisionalID) + `\b`)
	return pat.ReplaceAllString(content, finalID)
}

// replaceStepRefs rewrites bare step references like "PROVISIONAL101.1" to
// use the final artifact number, "17.1".
func replaceStepRefs(content, provisionalID, finalID string) string {
	tm := stepRefTailPat.FindStringSubmatch(provisionalID)
	fm := finalNumPat.FindStringSubmatch(finalID)
	if tm == nil || fm == nil {
		return content
	}
	pat := regexp.MustCompile(`\bPROVISIONAL` + tm[1] + `\.(\d+)`)
	return pat.ReplaceAllString(content, fm[1]+".$1")
}

// extractSection returns the "### <id>: ..." section of content, up to the
// next level-3 heading.
func extractSection(content, artifactID string) string {
	var lines []string
	in := false
	marker := "### " + artifactID + ":"
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, marker) {
			in = true
			lines = append(lines, line)
			continue
		}
		if in && strings.HasPrefix(trimmed, "### ") {
			break
		}
		if in {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// extractTestRequirements pulls REQ IDs from a section's *Tests*: line.
func extractTestRequirements(section string) []string {
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "*Tests*:") {
			continue
		}
		var reqs []string
		for _, item := range strings.Split(strings.TrimPrefix(line, "*Tests*:"), ",") {
			if item = strings.TrimSpace(item); testsLinePat.MatchString(item) {
				reqs = append(reqs, item)
			}
		}
		return reqs
	}
	return nil
}

// targetFilename swaps the converted token out of the draft's stem and
// appends the sanitized suffix, keeping the extension.
func targetFilename(draftName string, mapping map[string]string, suffix string) string {
	ext := filepath.Ext(draftName)
	stem := strings.TrimSuffix(draftName, ext)

	for _, pid := range sortedKeys(mapping) {
		pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(pid) + `\b`)
		if pat.MatchString(stem) {
			stem = pat.ReplaceAllString(stem, mapping[pid])
			break
		}
	}

	s := strings.ToLower(strings.TrimSpace(suffix))
	s = strings.Trim(suffixCleanPat.ReplaceAllString(s, "_"), "_")
	if s != "" {
		stem = stem + "_" + s
	}
	return stem + ext
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
