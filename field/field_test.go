package field

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pari-ranasaria28/Document-Signature-App/geometry"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

func newTestField(t *testing.T) *SignatureField {
	t.Helper()
	f, err := New(Placement{
		DocumentID:  "doc-1",
		SignerEmail: "Ana@Example.com",
		SignerName:  "Ana",
		PageNumber:  1,
		Position:    geometry.Fraction{X: 0.1, Y: 0.1},
		WidthPx:     200,
		HeightPx:    50,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return f
}

func TestNew(t *testing.T) {
	f := newTestField(t)
	if _, err := uuid.Parse(f.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", f.ID, err)
	}
	if f.Status != StatusPending {
		t.Errorf("Status = %s, want pending", f.Status)
	}
	if f.SignedAt != nil || f.SignatureImage != nil {
		t.Error("new field should carry no signature")
	}
	if other := newTestField(t); other.ID == f.ID {
		t.Error("field ids are not unique")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		p    Placement
	}{
		{"no document", Placement{PageNumber: 1, WidthPx: 1, HeightPx: 1}},
		{"page zero", Placement{DocumentID: "d", PageNumber: 0, WidthPx: 1, HeightPx: 1}},
		{"zero width", Placement{DocumentID: "d", PageNumber: 1, WidthPx: 0, HeightPx: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.p); !errors.Is(err, sigerr.ErrInvalidRecord) {
				t.Errorf("New() error = %v, want InvalidRecord", err)
			}
		})
	}
}

func TestMoveClampsAndRequiresPending(t *testing.T) {
	f := newTestField(t)
	if err := f.Move(2, geometry.Fraction{X: 1.4, Y: -0.2}); err != nil {
		t.Fatal(err)
	}
	if f.PageNumber != 2 || f.Position() != (geometry.Fraction{X: 1, Y: 0}) {
		t.Errorf("after Move: page %d pos %v", f.PageNumber, f.Position())
	}

	f.Sign([]byte{1}, time.Now())
	if err := f.Move(1, geometry.Fraction{}); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("Move on signed field error = %v, want InvalidTransition", err)
	}
	if err := f.CanDelete(); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("CanDelete on signed field error = %v, want InvalidTransition", err)
	}
}

func TestTransitions(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("sign", func(t *testing.T) {
		f := newTestField(t)
		if err := f.Sign([]byte("png"), at); err != nil {
			t.Fatal(err)
		}
		if f.Status != StatusSigned || f.SignedAt == nil || !f.SignedAt.Equal(at) {
			t.Errorf("after Sign: %s %v", f.Status, f.SignedAt)
		}
		if err := f.Sign([]byte("png"), at.Add(time.Hour)); !errors.Is(err, sigerr.ErrInvalidTransition) {
			t.Errorf("second Sign error = %v, want InvalidTransition", err)
		}
		if !f.SignedAt.Equal(at) {
			t.Error("signedAt changed after first transition")
		}
		if err := f.Reject(at); !errors.Is(err, sigerr.ErrInvalidTransition) {
			t.Errorf("Reject after Sign error = %v, want InvalidTransition", err)
		}
	})

	t.Run("empty image", func(t *testing.T) {
		f := newTestField(t)
		if err := f.Sign(nil, at); !errors.Is(err, sigerr.ErrEmptyInput) {
			t.Errorf("Sign(nil) error = %v, want EmptyInput", err)
		}
		if f.Status != StatusPending {
			t.Error("failed Sign changed status")
		}
	})

	t.Run("reject", func(t *testing.T) {
		f := newTestField(t)
		if err := f.Reject(at); err != nil {
			t.Fatal(err)
		}
		if f.Status != StatusRejected || f.RejectedAt == nil {
			t.Errorf("after Reject: %s %v", f.Status, f.RejectedAt)
		}
		if err := f.Sign([]byte("png"), at); !errors.Is(err, sigerr.ErrInvalidTransition) {
			t.Errorf("Sign after Reject error = %v, want InvalidTransition", err)
		}
	})
}

func TestLinkLocksSigner(t *testing.T) {
	f := newTestField(t)
	if err := f.SetSigner("Bo", "bo@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := f.IssueLink(); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSigner("Cy", "cy@example.com"); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("SetSigner after link error = %v, want InvalidTransition", err)
	}
	if f.SignerEmail != "bo@example.com" {
		t.Errorf("SignerEmail = %q", f.SignerEmail)
	}

	empty := newTestField(t)
	empty.SignerEmail = ""
	if err := empty.IssueLink(); !errors.Is(err, sigerr.ErrMissingSignerInfo) {
		t.Errorf("IssueLink without email error = %v, want MissingSignerInfo", err)
	}
}

func TestAssignedTo(t *testing.T) {
	f := newTestField(t)
	for _, email := range []string{"ana@example.com", " ANA@EXAMPLE.COM ", "Ana@Example.com"} {
		if !f.AssignedTo(email) {
			t.Errorf("AssignedTo(%q) = false", email)
		}
	}
	if f.AssignedTo("bo@example.com") {
		t.Error("AssignedTo matched another signer")
	}
}

func TestNormalizeName(t *testing.T) {
	// A combining acute accent composes into U+00E9.
	if got := NormalizeName("  Rene\u0301 "); got != "Ren\u00e9" {
		t.Errorf("NormalizeName() = %q", got)
	}
}

func TestSnapshotAndCloneAreIndependent(t *testing.T) {
	f := newTestField(t)
	f.Sign([]byte{1, 2, 3}, time.Now())

	snap := f.Snapshot()
	clone := f.Clone()
	f.SignatureImage[0] = 9
	*f.SignedAt = time.Time{}

	if snap.SignatureImage[0] != 1 || clone.SignatureImage[0] != 1 {
		t.Error("snapshot shares image bytes with the field")
	}
	if clone.SignedAt.IsZero() {
		t.Error("clone shares signedAt with the field")
	}
	if !snap.Eligible() {
		t.Error("signed snapshot with image should be eligible")
	}
	if (SignedField{Status: StatusSigned}).Eligible() {
		t.Error("signed field without image should not be eligible")
	}
}

func TestSignedFieldValidate(t *testing.T) {
	valid := SignedField{ID: "f", PageNumber: 1, XFraction: 0.1, YFraction: 0.1, WidthPx: 200, HeightPx: 50}
	tests := []struct {
		name   string
		mutate func(*SignedField)
		ok     bool
	}{
		{"valid", func(*SignedField) {}, true},
		{"edges", func(s *SignedField) { s.XFraction, s.YFraction = 0, 1 }, true},
		{"nan x", func(s *SignedField) { s.XFraction = math.NaN() }, false},
		{"inf y", func(s *SignedField) { s.YFraction = math.Inf(1) }, false},
		{"negative x", func(s *SignedField) { s.XFraction = -0.1 }, false},
		{"y above one", func(s *SignedField) { s.YFraction = 1.5 }, false},
		{"zero width", func(s *SignedField) { s.WidthPx = 0 }, false},
		{"nan height", func(s *SignedField) { s.HeightPx = math.NaN() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf := valid
			tt.mutate(&sf)
			err := sf.Validate()
			if tt.ok {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, sigerr.ErrInvalidRecord) {
				t.Errorf("Validate() = %v, want InvalidRecord", err)
			}
		})
	}
}

func TestCompareReadingOrder(t *testing.T) {
	mk := func(id string, page int, x, y float64) *SignatureField {
		return &SignatureField{ID: id, PageNumber: page, XFraction: x, YFraction: y}
	}
	fields := []*SignatureField{
		mk("d", 2, 0.1, 0.1),
		mk("c", 1, 0.5, 0.5),
		mk("b", 1, 0.9, 0.2),
		mk("a", 1, 0.1, 0.2),
	}
	slices.SortFunc(fields, CompareReadingOrder)

	var got []string
	for _, f := range fields {
		got = append(got, f.ID)
	}
	if want := []string{"a", "b", "c", "d"}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
