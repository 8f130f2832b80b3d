package capture

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// StrokeRasterizer draws strokes onto a canvas of opts size.
type StrokeRasterizer interface {
	RasterizeStrokes(strokes []Stroke, opts Options) (image.Image, error)
}

// TextRasterizer draws text onto a canvas of opts size.
type TextRasterizer interface {
	RasterizeText(text string, opts Options) (image.Image, error)
}

// VectorStrokeRasterizer renders strokes as anti-aliased paths with round
// caps and joins. One canvas unit maps to one output pixel.
type VectorStrokeRasterizer struct{}

// RasterizeStrokes implements StrokeRasterizer.
func (VectorStrokeRasterizer) RasterizeStrokes(strokes []Stroke, opts Options) (image.Image, error) {
	w, h := float64(opts.Width), float64(opts.Height)
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)

	if opts.Background != nil {
		ctx.SetFillColor(opts.Background)
		ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	}

	ctx.SetStrokeColor(opts.Ink)
	ctx.SetStrokeWidth(opts.StrokeWidth)
	ctx.SetStrokeCapper(canvas.RoundCap)
	ctx.SetStrokeJoiner(canvas.RoundJoin)

	for _, s := range strokes {
		if len(s) == 1 {
			// A tap leaves a dot.
			ctx.SetFillColor(opts.Ink)
			ctx.SetStrokeColor(canvas.Transparent)
			ctx.DrawPath(s[0].X, h-s[0].Y, canvas.Circle(opts.StrokeWidth/2))
			ctx.SetStrokeColor(opts.Ink)
			continue
		}
		p := &canvas.Path{}
		p.MoveTo(s[0].X, h-s[0].Y)
		for _, pt := range s[1:] {
			p.LineTo(pt.X, h-pt.Y)
		}
		ctx.SetFillColor(canvas.Transparent)
		ctx.DrawPath(0, 0, p)
	}

	return rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace), nil
}

// FontTextRasterizer renders text in a TrueType face, centered and shrunk
// to fit the canvas.
type FontTextRasterizer struct {
	font *opentype.Font
	// Fill is the share of the canvas the text may occupy.
	Fill float64
}

var (
	defaultFontOnce sync.Once
	defaultFont     *opentype.Font
	defaultFontErr  error
)

// DefaultTextRasterizer uses the Go Italic face.
func DefaultTextRasterizer() *FontTextRasterizer {
	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = opentype.Parse(goitalic.TTF)
	})
	return &FontTextRasterizer{font: defaultFont, Fill: 0.85}
}

// NewFontTextRasterizer parses TrueType or OpenType font data.
func NewFontTextRasterizer(data []byte) (*FontTextRasterizer, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &FontTextRasterizer{font: f, Fill: 0.85}, nil
}

func (r *FontTextRasterizer) face(size float64) (font.Face, error) {
	return opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// RasterizeText implements TextRasterizer.
func (r *FontTextRasterizer) RasterizeText(text string, opts Options) (image.Image, error) {
	if r.font == nil {
		return nil, fmt.Errorf("failed to load font: %v", defaultFontErr)
	}
	fill := r.Fill
	if fill <= 0 || fill > 1 {
		fill = 0.85
	}
	maxW := float64(opts.Width) * fill

	size := float64(opts.Height) * 0.6
	face, err := r.face(size)
	if err != nil {
		return nil, err
	}
	width := fixedToFloat(font.MeasureString(face, text))
	if width > maxW {
		face.Close()
		size *= maxW / width
		if face, err = r.face(size); err != nil {
			return nil, err
		}
		width = fixedToFloat(font.MeasureString(face, text))
	}
	defer face.Close()

	dst := image.NewNRGBA(opts.bounds())
	if opts.Background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	}

	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)
	baseline := (float64(opts.Height) + ascent - descent) / 2
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(opts.Ink),
		Face: face,
		Dot:  fixed.Point26_6{X: floatToFixed((float64(opts.Width) - width) / 2), Y: floatToFixed(baseline)},
	}
	d.DrawString(text)
	return dst, nil
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
