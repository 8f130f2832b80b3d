// Package stamp burns signature images into the pages of an existing PDF.
//
// The original bytes are never modified: each run parses them, appends an
// incremental update with the image XObjects and page content, and returns
// the combined buffer.
package stamp

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pari-ranasaria28/Document-Signature-App/config"
	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/content"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/layout"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/reader"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/writer"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// minOutputVersion is the first version supporting soft masks.
var minOutputVersion = writer.PDFVersion{Major: 1, Minor: 4}

// Options configures a Stamper.
type Options struct {
	// PointsPerPixel converts field box sizes to points.
	PointsPerPixel float64

	// ScaleMode places the image inside its box.
	ScaleMode ImageScaleMode

	// WrapExistingContent wraps existing page content in q/Q so stray
	// graphics state cannot displace the stamps.
	WrapExistingContent bool

	// OutputVersion is the minimum PDF version of the output.
	OutputVersion writer.PDFVersion

	Logger *slog.Logger
}

// DefaultOptions returns the default stamping options.
func DefaultOptions() *Options {
	return &Options{
		PointsPerPixel:      1.0,
		ScaleMode:           ImageScaleStretch,
		WrapExistingContent: true,
		OutputVersion:       minOutputVersion,
	}
}

// OptionsFromConfig converts stamp configuration into options.
func OptionsFromConfig(cfg *config.StampConfig, logger *slog.Logger) (*Options, error) {
	mode, err := ParseImageScaleMode(cfg.ScaleMode)
	if err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	opts.PointsPerPixel = cfg.PointsPerPixel
	opts.ScaleMode = mode
	if cfg.OutputVersion != "" {
		opts.OutputVersion = writer.ParseVersion(cfg.OutputVersion)
	}
	opts.Logger = logger
	return opts, nil
}

// Placement records where a field's image was painted.
type Placement struct {
	FieldID    string
	PageNumber int

	// Box is the field box in displayed page space (see FieldBox).
	Box layout.Rectangle
	// Image is the painted image rectangle in the same space.
	Image layout.Rectangle
	// Matrix maps the unit square of the image onto the page's user space.
	Matrix layout.Transform

	// Resource is the XObject name on the page.
	Resource string
	// ImageRef is the shared image XObject.
	ImageRef generic.Reference
}

// Skip records a field that was not stamped.
type Skip struct {
	FieldID    string
	PageNumber int
	Err        error
}

// Report describes one stamping run.
type Report struct {
	PageCount  int
	Eligible   int
	Placements []Placement
	Skipped    []Skip
	// ImagesEmbedded counts distinct image XObjects written.
	ImagesEmbedded int
}

// Stamper embeds signature images into PDFs. It holds no per-run state and
// is safe for concurrent use.
type Stamper struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Stamper. A nil opts selects DefaultOptions.
func New(opts *Options) *Stamper {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.PointsPerPixel <= 0 {
		o.PointsPerPixel = 1.0
	}
	if o.OutputVersion.Compare(minOutputVersion) < 0 {
		o.OutputVersion = minOutputVersion
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stamper{opts: o, logger: logger.With("component", "stamp")}
}

// Stamp embeds the images of signed fields with default options.
func Stamp(original []byte, fields []field.SignedField) ([]byte, error) {
	return New(nil).Stamp(original, fields)
}

// Stamp embeds the images of all signed fields.
func (s *Stamper) Stamp(original []byte, fields []field.SignedField) ([]byte, error) {
	out, _, err := s.StampWithReport(original, fields)
	return out, err
}

// StampWithReport embeds the images of all signed fields and reports where
// each one went. Fields on pages that do not exist are skipped. A signed
// field with an invalid position or box, or an image that cannot be decoded,
// fails the whole run.
func (s *Stamper) StampWithReport(original []byte, fields []field.SignedField) (out []byte, report *Report, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, report = nil, nil
			err = sigerr.New(sigerr.KindSourceDocumentInvalid, "malformed document: %v", rec)
		}
	}()

	r, err := reader.NewPdfFileReaderFromBytes(bytes.Clone(original))
	if err != nil {
		return nil, nil, sigerr.Wrap(sigerr.KindSourceDocumentInvalid, err, "failed to parse PDF")
	}
	if r.Encrypted {
		return nil, nil, sigerr.New(sigerr.KindSourceDocumentInvalid, "encrypted documents are not supported")
	}

	report = &Report{PageCount: r.PageCount()}
	byPage := make(map[int][]field.SignedField)
	var pageOrder []int
	for _, f := range fields {
		if !f.Eligible() {
			continue
		}
		if err := f.Validate(); err != nil {
			return nil, nil, err
		}
		report.Eligible++
		idx := f.PageNumber - 1
		if idx < 0 || idx >= report.PageCount {
			skipErr := sigerr.New(sigerr.KindFieldPageOutOfRange,
				"page %d is outside 1..%d", f.PageNumber, report.PageCount).WithField(f.ID)
			s.logger.Warn("skipping field on missing page",
				"field", f.ID, "page", f.PageNumber, "pages", report.PageCount)
			report.Skipped = append(report.Skipped, Skip{FieldID: f.ID, PageNumber: f.PageNumber, Err: skipErr})
			continue
		}
		if _, seen := byPage[idx]; !seen {
			pageOrder = append(pageOrder, idx)
		}
		byPage[idx] = append(byPage[idx], f)
	}

	if len(pageOrder) == 0 {
		s.logger.Info("no fields to stamp", "eligible", report.Eligible, "skipped", len(report.Skipped))
		return bytes.Clone(original), report, nil
	}

	w := writer.NewIncrementalPdfFileWriter(r)
	emb := newEmbedder(w)
	for _, idx := range pageOrder {
		placements, err := s.stampPage(w, emb, idx, byPage[idx])
		if err != nil {
			return nil, nil, err
		}
		report.Placements = append(report.Placements, placements...)
	}
	report.ImagesEmbedded = emb.count()

	if err := w.EnsureOutputVersion(s.opts.OutputVersion); err != nil {
		return nil, nil, sigerr.Wrap(sigerr.KindSourceDocumentInvalid, err, "failed to update catalog")
	}

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to write output: %w", err)
	}

	s.logger.Info("stamped document",
		"placements", len(report.Placements),
		"skipped", len(report.Skipped),
		"images", report.ImagesEmbedded,
		"bytes", buf.Len())
	return buf.Bytes(), report, nil
}

func (s *Stamper) stampPage(w *writer.IncrementalPdfFileWriter, emb *embedder, idx int, fields []field.SignedField) ([]Placement, error) {
	page, err := w.Reader.Page(idx)
	if err != nil {
		return nil, sigerr.Wrap(sigerr.KindSourceDocumentInvalid, err, "failed to read page %d", idx+1)
	}
	box := pageBox(page)
	pageW, pageH := layout.DisplaySize(box, page.Rotate)
	toUser := layout.DisplayToUser(box, page.Rotate)

	cb := content.NewContentBuilder()
	if s.opts.WrapExistingContent {
		// Closes the q prepended before the existing content.
		cb.RestoreState()
	}

	placements := make([]Placement, 0, len(fields))
	for _, f := range fields {
		img, err := emb.embed(f)
		if err != nil {
			return nil, err
		}
		name, err := emb.resourceName(idx, img)
		if err != nil {
			return nil, sigerr.Wrap(sigerr.KindSourceDocumentInvalid, err, "failed to update page %d", f.PageNumber).WithField(f.ID)
		}

		fieldBox := FieldBox(f, pageW, pageH, s.opts.PointsPerPixel)
		imgRect := ImageRect(s.opts.ScaleMode, img.width, img.height, fieldBox)

		cb.SaveState()
		var matrix layout.Transform
		if s.opts.ScaleMode == ImageScaleFill {
			cb.Transform(toUser).ClipRect(fieldBox).Transform(layout.BoxTransform(imgRect))
			matrix = toUser.Multiply(layout.BoxTransform(imgRect))
		} else {
			matrix = toUser.Multiply(layout.BoxTransform(imgRect))
			cb.Transform(matrix)
		}
		cb.PaintXObject(name).RestoreState()

		s.logger.Debug("placed field",
			"field", f.ID, "page", f.PageNumber,
			"x", fieldBox.X, "y", fieldBox.Y, "width", fieldBox.Width, "height", fieldBox.Height)
		placements = append(placements, Placement{
			FieldID:    f.ID,
			PageNumber: f.PageNumber,
			Box:        fieldBox,
			Image:      imgRect,
			Matrix:     matrix,
			Resource:   name,
			ImageRef:   img.ref,
		})
	}

	if s.opts.WrapExistingContent {
		openRef := w.AddObject(newContentStream([]byte("q\n")))
		if err := w.AddStreamToPage(idx, openRef, true); err != nil {
			return nil, sigerr.Wrap(sigerr.KindSourceDocumentInvalid, err, "failed to update page %d", idx+1)
		}
	}
	stampRef := w.AddObject(newContentStream(cb.Render()))
	if err := w.AddStreamToPage(idx, stampRef, false); err != nil {
		return nil, sigerr.Wrap(sigerr.KindSourceDocumentInvalid, err, "failed to update page %d", idx+1)
	}
	return placements, nil
}

// pageBox converts the visible page box to layout space.
func pageBox(page *reader.Page) layout.Rectangle {
	b := page.Box()
	return layout.Rectangle{X: b.LLX, Y: b.LLY, Width: b.Width(), Height: b.Height()}
}

func newContentStream(data []byte) *generic.StreamObject {
	return generic.NewStream(generic.NewDictionary(), data)
}

// IsSkipped reports whether err marks a field skipped for a missing page.
func IsSkipped(err error) bool {
	return errors.Is(err, sigerr.ErrFieldPageOutOfRange)
}
