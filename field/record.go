package field

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// Record is the JSON form of a field at the persistence and HTTP boundary.
type Record struct {
	ID             string     `json:"id"`
	DocumentID     string     `json:"documentId,omitempty"`
	SignerEmail    string     `json:"signerEmail,omitempty"`
	SignerName     string     `json:"signerName,omitempty"`
	PageNumber     int        `json:"pageNumber"`
	XFraction      float64    `json:"xFraction"`
	YFraction      float64    `json:"yFraction"`
	WidthPx        float64    `json:"widthPx"`
	HeightPx       float64    `json:"heightPx"`
	Status         Status     `json:"status"`
	SignatureImage string     `json:"signatureImage,omitempty"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	RejectedAt     *time.Time `json:"rejectedAt,omitempty"`
	LinkIssued     bool       `json:"linkIssued,omitempty"`
}

// wireRecord mirrors Record with pointers so missing keys can be told apart
// from zero values.
type wireRecord struct {
	ID             *string    `json:"id"`
	DocumentID     *string    `json:"documentId"`
	SignerEmail    *string    `json:"signerEmail"`
	SignerName     *string    `json:"signerName"`
	PageNumber     *int       `json:"pageNumber"`
	XFraction      *float64   `json:"xFraction"`
	YFraction      *float64   `json:"yFraction"`
	WidthPx        *float64   `json:"widthPx"`
	HeightPx       *float64   `json:"heightPx"`
	Status         *Status    `json:"status"`
	SignatureImage *string    `json:"signatureImage"`
	SignedAt       *time.Time `json:"signedAt"`
	RejectedAt     *time.Time `json:"rejectedAt"`
	LinkIssued     *bool      `json:"linkIssued"`
}

// Record returns the JSON form of the field.
func (f *SignatureField) Record() Record {
	r := Record{
		ID:          f.ID,
		DocumentID:  f.DocumentID,
		SignerEmail: f.SignerEmail,
		SignerName:  f.SignerName,
		PageNumber:  f.PageNumber,
		XFraction:   f.XFraction,
		YFraction:   f.YFraction,
		WidthPx:     f.WidthPx,
		HeightPx:    f.HeightPx,
		Status:      f.Status,
		SignedAt:    f.SignedAt,
		RejectedAt:  f.RejectedAt,
		LinkIssued:  f.LinkIssued,
	}
	if len(f.SignatureImage) > 0 {
		r.SignatureImage = base64.StdEncoding.EncodeToString(f.SignatureImage)
	}
	return r
}

// DecodeRecord strictly decodes one JSON record.
func DecodeRecord(data []byte) (*SignatureField, error) {
	var w wireRecord
	if err := decodeStrict(data, &w); err != nil {
		return nil, err
	}
	return w.field()
}

// DecodeRecords strictly decodes a JSON array of records.
func DecodeRecords(data []byte) ([]*SignatureField, error) {
	var ws []json.RawMessage
	if err := decodeStrict(data, &ws); err != nil {
		return nil, err
	}
	fields := make([]*SignatureField, 0, len(ws))
	for i, raw := range ws {
		f, err := DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return sigerr.Wrap(sigerr.KindInvalidRecord, err, "malformed record")
	}
	if _, err := dec.Token(); err != io.EOF {
		return sigerr.New(sigerr.KindInvalidRecord, "trailing data after record")
	}
	return nil
}

func invalid(id, format string, args ...any) error {
	return sigerr.New(sigerr.KindInvalidRecord, format, args...).WithField(id)
}

func (w *wireRecord) field() (*SignatureField, error) {
	var missing []string
	for _, req := range []struct {
		name    string
		present bool
	}{
		{"id", w.ID != nil},
		{"pageNumber", w.PageNumber != nil},
		{"xFraction", w.XFraction != nil},
		{"yFraction", w.YFraction != nil},
		{"widthPx", w.WidthPx != nil},
		{"heightPx", w.HeightPx != nil},
		{"status", w.Status != nil},
	} {
		if !req.present {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, sigerr.New(sigerr.KindInvalidRecord, "missing required keys: %s", strings.Join(missing, ", "))
	}

	id := strings.TrimSpace(*w.ID)
	if id == "" {
		return nil, invalid("", "id is empty")
	}
	if *w.PageNumber < 1 {
		return nil, invalid(id, "pageNumber %d must be at least 1", *w.PageNumber)
	}
	for name, v := range map[string]float64{"xFraction": *w.XFraction, "yFraction": *w.YFraction} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, invalid(id, "%s %g is outside [0,1]", name, v)
		}
	}
	if err := checkBox(*w.WidthPx, *w.HeightPx); err != nil {
		return nil, invalid(id, "box size %gx%g must be positive", *w.WidthPx, *w.HeightPx)
	}
	if !w.Status.Valid() {
		return nil, invalid(id, "unknown status %q", *w.Status)
	}

	f := &SignatureField{
		ID:         id,
		PageNumber: *w.PageNumber,
		XFraction:  *w.XFraction,
		YFraction:  *w.YFraction,
		WidthPx:    *w.WidthPx,
		HeightPx:   *w.HeightPx,
		Status:     *w.Status,
		SignedAt:   w.SignedAt,
		RejectedAt: w.RejectedAt,
	}
	if w.DocumentID != nil {
		f.DocumentID = *w.DocumentID
	}
	if w.SignerEmail != nil {
		f.SignerEmail = strings.TrimSpace(*w.SignerEmail)
	}
	if w.SignerName != nil {
		f.SignerName = NormalizeName(*w.SignerName)
	}
	if w.LinkIssued != nil {
		f.LinkIssued = *w.LinkIssued
	}

	if w.SignatureImage != nil && *w.SignatureImage != "" {
		if f.Status != StatusSigned {
			return nil, invalid(id, "signatureImage is only allowed on signed fields")
		}
		img, err := DecodeImageData(*w.SignatureImage)
		if err != nil {
			return nil, sigerr.Wrap(sigerr.KindInvalidRecord, err, "signatureImage is not base64").WithField(id)
		}
		f.SignatureImage = img
	}
	if f.Status != StatusSigned && f.SignedAt != nil {
		return nil, invalid(id, "signedAt is only allowed on signed fields")
	}
	if f.Status != StatusRejected && f.RejectedAt != nil {
		return nil, invalid(id, "rejectedAt is only allowed on rejected fields")
	}
	return f, nil
}

// DecodeImageData decodes base64 image data, accepting an optional data URL
// prefix such as "data:image/png;base64,".
func DecodeImageData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, fmt.Errorf("unsupported data URL")
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip the padding.
		if data, err2 := base64.RawStdEncoding.DecodeString(s); err2 == nil {
			return data, nil
		}
		return nil, err
	}
	return data, nil
}
