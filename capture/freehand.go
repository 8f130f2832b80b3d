package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/pari-ranasaria28/Document-Signature-App/geometry"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// ErrNoStroke is returned when points arrive outside a stroke.
var ErrNoStroke = errors.New("no stroke in progress")

// Stroke is one continuous pen movement in canvas pixels.
type Stroke []geometry.Point

// FreehandPad collects pen strokes.
type FreehandPad struct {
	mu      sync.Mutex
	opts    Options
	raster  StrokeRasterizer
	strokes []Stroke
	current Stroke
	drawing bool
}

// NewFreehandPad creates a pad. A nil rasterizer selects the vector
// rasterizer.
func NewFreehandPad(opts Options, raster StrokeRasterizer) *FreehandPad {
	if raster == nil {
		raster = VectorStrokeRasterizer{}
	}
	return &FreehandPad{opts: opts, raster: raster}
}

func (p *FreehandPad) clamp(pt geometry.Point) geometry.Point {
	w, h := float64(p.opts.Width), float64(p.opts.Height)
	pt.X = min(max(pt.X, 0), w)
	pt.Y = min(max(pt.Y, 0), h)
	return pt
}

// BeginStroke starts a stroke at pt. A stroke still in progress is ended
// first.
func (p *FreehandPad) BeginStroke(pt geometry.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLocked()
	p.current = Stroke{p.clamp(pt)}
	p.drawing = true
}

// AddPoint extends the current stroke.
func (p *FreehandPad) AddPoint(pt geometry.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.drawing {
		return ErrNoStroke
	}
	p.current = append(p.current, p.clamp(pt))
	return nil
}

// EndStroke commits the current stroke.
func (p *FreehandPad) EndStroke() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.drawing {
		return ErrNoStroke
	}
	p.endLocked()
	return nil
}

func (p *FreehandPad) endLocked() {
	if p.drawing && len(p.current) > 0 {
		p.strokes = append(p.strokes, p.current)
	}
	p.current = nil
	p.drawing = false
}

// Clear removes every stroke.
func (p *FreehandPad) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strokes = nil
	p.current = nil
	p.drawing = false
}

// Cancel discards all captured input.
func (p *FreehandPad) Cancel() { p.Clear() }

// Strokes returns a copy of the committed strokes.
func (p *FreehandPad) Strokes() []Stroke {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Stroke, len(p.strokes))
	for i, s := range p.strokes {
		out[i] = append(Stroke(nil), s...)
	}
	return out
}

// Empty reports whether no stroke has been recorded.
func (p *FreehandPad) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.strokes) == 0 && !(p.drawing && len(p.current) > 0)
}

// Complete rasterizes the strokes. A stroke in progress is committed first.
func (p *FreehandPad) Complete(ctx context.Context, signer Signer) (*Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.endLocked()
	strokes := make([]Stroke, len(p.strokes))
	copy(strokes, p.strokes)
	p.mu.Unlock()

	if len(strokes) == 0 {
		return nil, sigerr.New(sigerr.KindEmptyInput, "no strokes drawn")
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}
	img, err := p.raster.RasterizeStrokes(strokes, p.opts)
	if err != nil {
		return nil, err
	}
	return finish(ctx, img, p.opts, MethodDrawn, signer)
}
