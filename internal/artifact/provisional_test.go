package artifact

import (
	"errors"
	"testing"
)

func TestFindProvisionalIDs(t *testing.T) {
	r := newTestRegistry(t)

	text := `# PRD-PROVISIONAL1: Login

### REQ-PROVISIONAL1: Session timeout
Covered by uacc-provisional2.

### REQ-PROVISIONAL1: mentioned twice
EPIC-PROVISIONAL9 is not a registered type.
REQPROVISIONAL3 has no separator.`

	got := r.FindProvisionalIDs(text)
	want := []string{"PRD-PROVISIONAL1", "REQ-PROVISIONAL1", "UACC-PROVISIONAL2"}
	if len(got) != len(want) {
		t.Fatalf("FindProvisionalIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindProvisionalIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindProvisionalIDsEmpty(t *testing.T) {
	r := newTestRegistry(t)

	if got := r.FindProvisionalIDs("nothing provisional here, not even PRD-1"); len(got) != 0 {
		t.Errorf("FindProvisionalIDs() = %v, want empty", got)
	}
}

func TestParseProvisionalID(t *testing.T) {
	r := newTestRegistry(t)

	typeCode, tempID, err := r.ParseProvisionalID("sacc-provisional42")
	if err != nil {
		t.Fatalf("ParseProvisionalID() failed: %v", err)
	}
	if typeCode != "SACC" || tempID != 42 {
		t.Errorf("ParseProvisionalID() = %q, %d, want SACC, 42", typeCode, tempID)
	}
}

func TestParseProvisionalIDRejectsMalformed(t *testing.T) {
	r := newTestRegistry(t)

	for _, input := range []string{"SACC-42", "PROVISIONAL1", "EPIC-PROVISIONAL1", ""} {
		if _, _, err := r.ParseProvisionalID(input); err == nil {
			t.Errorf("ParseProvisionalID(%q) succeeded, want error", input)
		}
	}
}

func TestValidateProvisionalFilename(t *testing.T) {
	r := newTestRegistry(t)

	typeCode, err := r.ValidateProvisionalFilename("prd-provisional1.md")
	if err != nil {
		t.Fatalf("ValidateProvisionalFilename() failed: %v", err)
	}
	if typeCode != "PRD" {
		t.Errorf("ValidateProvisionalFilename() = %q, want PRD", typeCode)
	}

	_, err = r.ValidateProvisionalFilename("PRD-1.md")
	if !errors.Is(err, ErrInvalidIDFormat) {
		t.Errorf("ValidateProvisionalFilename(\"PRD-1.md\") error = %v, want ErrInvalidIDFormat", err)
	}

	if _, err := r.ValidateProvisionalFilename("EPIC-PROVISIONAL1.md"); err == nil {
		t.Error("ValidateProvisionalFilename(\"EPIC-PROVISIONAL1.md\") succeeded, want error")
	}
}
