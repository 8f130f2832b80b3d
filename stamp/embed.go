package stamp

import (
	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/images"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/writer"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

type embeddedImage struct {
	ref           generic.Reference
	fingerprint   string
	width, height int
}

// embedder writes each distinct image once per run and names it once per
// page.
type embedder struct {
	w      *writer.IncrementalPdfFileWriter
	byHash map[string]*embeddedImage
	names  map[int]map[string]string
}

func newEmbedder(w *writer.IncrementalPdfFileWriter) *embedder {
	return &embedder{
		w:      w,
		byHash: make(map[string]*embeddedImage),
		names:  make(map[int]map[string]string),
	}
}

func (e *embedder) embed(f field.SignedField) (*embeddedImage, error) {
	fp := images.Fingerprint(f.SignatureImage)
	if img, ok := e.byHash[fp]; ok {
		return img, nil
	}

	pdfImg, err := images.NewPDFImageFromBytes(f.SignatureImage)
	if err != nil {
		return nil, sigerr.Wrap(sigerr.KindImageEmbedFailed, err, "failed to decode signature image").WithField(f.ID)
	}

	var smaskRef *generic.Reference
	if mask := pdfImg.SMask(); mask != nil {
		ref := e.w.AddObject(mask)
		smaskRef = &ref
	}
	img := &embeddedImage{
		ref:         e.w.AddObject(pdfImg.XObject(smaskRef)),
		fingerprint: fp,
		width:       pdfImg.Width,
		height:      pdfImg.Height,
	}
	e.byHash[fp] = img
	return img, nil
}

func (e *embedder) resourceName(pageIdx int, img *embeddedImage) (string, error) {
	names := e.names[pageIdx]
	if names == nil {
		names = make(map[string]string)
		e.names[pageIdx] = names
	}
	if name, ok := names[img.fingerprint]; ok {
		return name, nil
	}
	name, err := e.w.AddPageResource(pageIdx, "XObject", "SigIm", img.ref)
	if err != nil {
		return "", err
	}
	names[img.fingerprint] = name
	return name, nil
}

func (e *embedder) count() int {
	return len(e.byHash)
}
