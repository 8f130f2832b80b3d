// Package field models signature fields placed on a document page and their
// signing lifecycle.
package field

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/pari-ranasaria28/Document-Signature-App/geometry"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// Status is the signing status of a field.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSigned   Status = "signed"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSigned, StatusRejected:
		return true
	}
	return false
}

// SignatureField is a box on a page that one signer must fill in.
//
// Position is stored as fractions of the full rendered page content with a
// top-left origin. WidthPx and HeightPx are the box size at zoom 1.0.
type SignatureField struct {
	ID          string
	DocumentID  string
	SignerEmail string
	SignerName  string

	PageNumber int
	XFraction  float64
	YFraction  float64
	WidthPx    float64
	HeightPx   float64

	Status         Status
	SignatureImage []byte
	SignedAt       *time.Time
	RejectedAt     *time.Time

	// LinkIssued locks the signer identity once a signing link exists.
	LinkIssued bool
}

// Placement describes a new field.
type Placement struct {
	DocumentID  string
	SignerEmail string
	SignerName  string
	PageNumber  int
	Position    geometry.Fraction
	WidthPx     float64
	HeightPx    float64
}

// New creates a pending field with a fresh identifier.
func New(p Placement) (*SignatureField, error) {
	if strings.TrimSpace(p.DocumentID) == "" {
		return nil, sigerr.New(sigerr.KindInvalidRecord, "document id is required")
	}
	f := &SignatureField{
		ID:         uuid.NewString(),
		DocumentID: p.DocumentID,
		Status:     StatusPending,
	}
	if err := f.SetSigner(p.SignerName, p.SignerEmail); err != nil {
		return nil, err
	}
	if err := f.Move(p.PageNumber, p.Position); err != nil {
		return nil, err
	}
	if err := checkBox(p.WidthPx, p.HeightPx); err != nil {
		return nil, err
	}
	f.WidthPx, f.HeightPx = p.WidthPx, p.HeightPx
	return f, nil
}

func checkBox(w, h float64) error {
	if !(w > 0) || !(h > 0) {
		return sigerr.New(sigerr.KindInvalidRecord, "box size %gx%g must be positive", w, h)
	}
	return nil
}

// NormalizeEmail trims and case-folds an address for comparison.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// NormalizeName trims a display name and puts it in NFC form.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// AssignedTo reports whether the field belongs to the given signer.
func (f *SignatureField) AssignedTo(email string) bool {
	return NormalizeEmail(f.SignerEmail) == NormalizeEmail(email)
}

// Position returns the stored fractions.
func (f *SignatureField) Position() geometry.Fraction {
	return geometry.Fraction{X: f.XFraction, Y: f.YFraction}
}

// SetSigner assigns the signer. It fails once a link has been issued.
func (f *SignatureField) SetSigner(name, email string) error {
	if f.LinkIssued {
		return sigerr.New(sigerr.KindInvalidTransition, "signer is locked after link issuance").WithField(f.ID)
	}
	f.SignerName = NormalizeName(name)
	f.SignerEmail = strings.TrimSpace(email)
	return nil
}

// IssueLink locks the signer identity.
func (f *SignatureField) IssueLink() error {
	if strings.TrimSpace(f.SignerEmail) == "" {
		return sigerr.New(sigerr.KindMissingSignerInfo, "field has no signer email").WithField(f.ID)
	}
	f.LinkIssued = true
	return nil
}

// Move repositions a pending field. Fractions are clamped to [0,1].
func (f *SignatureField) Move(page int, pos geometry.Fraction) error {
	if err := f.requirePending("move"); err != nil {
		return err
	}
	if page < 1 {
		return sigerr.New(sigerr.KindInvalidRecord, "page number %d must be at least 1", page).WithField(f.ID)
	}
	pos = pos.Clamp()
	f.PageNumber = page
	f.XFraction, f.YFraction = pos.X, pos.Y
	return nil
}

// CanDelete reports an error unless the field may be removed.
func (f *SignatureField) CanDelete() error {
	return f.requirePending("delete")
}

// Sign records the signature image. signedAt is set exactly once.
func (f *SignatureField) Sign(image []byte, at time.Time) error {
	if err := f.requirePending("sign"); err != nil {
		return err
	}
	if len(image) == 0 {
		return sigerr.New(sigerr.KindEmptyInput, "signature image is empty").WithField(f.ID)
	}
	f.Status = StatusSigned
	f.SignatureImage = slices.Clone(image)
	at = at.UTC()
	f.SignedAt = &at
	return nil
}

// Reject marks the field rejected.
func (f *SignatureField) Reject(at time.Time) error {
	if err := f.requirePending("reject"); err != nil {
		return err
	}
	f.Status = StatusRejected
	at = at.UTC()
	f.RejectedAt = &at
	return nil
}

func (f *SignatureField) requirePending(op string) error {
	if f.Status != StatusPending {
		return sigerr.New(sigerr.KindInvalidTransition, "cannot %s a %s field", op, f.Status).WithField(f.ID)
	}
	return nil
}

// Clone returns a deep copy.
func (f *SignatureField) Clone() *SignatureField {
	c := *f
	c.SignatureImage = slices.Clone(f.SignatureImage)
	if f.SignedAt != nil {
		t := *f.SignedAt
		c.SignedAt = &t
	}
	if f.RejectedAt != nil {
		t := *f.RejectedAt
		c.RejectedAt = &t
	}
	return &c
}

// SignedField is the view of a field the stamper works from.
type SignedField struct {
	ID             string
	PageNumber     int
	XFraction      float64
	YFraction      float64
	WidthPx        float64
	HeightPx       float64
	Status         Status
	SignatureImage []byte
}

// Eligible reports whether the field should be stamped.
func (s SignedField) Eligible() bool {
	return s.Status == StatusSigned && len(s.SignatureImage) > 0
}

// Validate checks that the field's position and box can be placed on a page.
func (s SignedField) Validate() error {
	for name, v := range map[string]float64{"xFraction": s.XFraction, "yFraction": s.YFraction} {
		if !(v >= 0 && v <= 1) {
			return sigerr.New(sigerr.KindInvalidRecord, "%s %g is outside [0,1]", name, v).WithField(s.ID)
		}
	}
	if err := checkBox(s.WidthPx, s.HeightPx); err != nil {
		return sigerr.New(sigerr.KindInvalidRecord, "box size %gx%g must be positive", s.WidthPx, s.HeightPx).WithField(s.ID)
	}
	return nil
}

// Snapshot returns an independent stamping view of the field.
func (f *SignatureField) Snapshot() SignedField {
	return SignedField{
		ID:             f.ID,
		PageNumber:     f.PageNumber,
		XFraction:      f.XFraction,
		YFraction:      f.YFraction,
		WidthPx:        f.WidthPx,
		HeightPx:       f.HeightPx,
		Status:         f.Status,
		SignatureImage: slices.Clone(f.SignatureImage),
	}
}

// CompareReadingOrder orders fields by page, then top to bottom, then left
// to right.
func CompareReadingOrder(a, b *SignatureField) int {
	if c := cmp.Compare(a.PageNumber, b.PageNumber); c != 0 {
		return c
	}
	if c := cmp.Compare(a.YFraction, b.YFraction); c != 0 {
		return c
	}
	if c := cmp.Compare(a.XFraction, b.XFraction); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
