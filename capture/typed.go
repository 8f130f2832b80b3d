package capture

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// TypedPad renders a typed name as a signature.
type TypedPad struct {
	mu     sync.Mutex
	opts   Options
	raster TextRasterizer
	text   string
}

// NewTypedPad creates a pad. A nil rasterizer selects the built-in italic
// font rasterizer.
func NewTypedPad(opts Options, raster TextRasterizer) *TypedPad {
	if raster == nil {
		raster = DefaultTextRasterizer()
	}
	return &TypedPad{opts: opts, raster: raster}
}

// SetText replaces the typed text.
func (p *TypedPad) SetText(text string) {
	p.mu.Lock()
	p.text = norm.NFC.String(text)
	p.mu.Unlock()
}

// Text returns the typed text.
func (p *TypedPad) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// Empty reports whether the trimmed text is empty.
func (p *TypedPad) Empty() bool {
	return strings.TrimSpace(p.Text()) == ""
}

// Cancel discards the typed text.
func (p *TypedPad) Cancel() { p.SetText("") }

// Complete rasterizes the typed text.
func (p *TypedPad) Complete(ctx context.Context, signer Signer) (*Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.Text())
	if text == "" {
		return nil, sigerr.New(sigerr.KindEmptyInput, "no text typed")
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}
	img, err := p.raster.RasterizeText(text, p.opts)
	if err != nil {
		return nil, err
	}
	return finish(ctx, img, p.opts, MethodTyped, signer)
}
