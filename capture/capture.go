// Package capture turns freehand strokes or typed text into a signature
// image of a fixed size.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/mail"
	"strconv"
	"strings"

	"github.com/pari-ranasaria28/Document-Signature-App/config"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// Method records how a signature was produced.
type Method string

const (
	MethodDrawn Method = "drawn"
	MethodTyped Method = "typed"
)

// Signer identifies who is signing.
type Signer struct {
	Name  string
	Email string
}

// Validate checks that both name and email are present and that the email
// parses as an address.
func (s Signer) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return sigerr.New(sigerr.KindMissingSignerInfo, "signer name is required")
	}
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return sigerr.New(sigerr.KindMissingSignerInfo, "signer email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return sigerr.Wrap(sigerr.KindMissingSignerInfo, err, "signer email %q is not valid", email)
	}
	return nil
}

// Signature is a completed capture.
type Signature struct {
	PNG    []byte
	Width  int
	Height int
	Method Method
	Signer Signer
}

// Base64 returns the PNG as standard base64.
func (s *Signature) Base64() string {
	return base64.StdEncoding.EncodeToString(s.PNG)
}

// DataURL returns the PNG as a data URL.
func (s *Signature) DataURL() string {
	return "data:image/png;base64," + s.Base64()
}

// Options controls the output raster.
type Options struct {
	Width       int
	Height      int
	Ink         color.NRGBA
	StrokeWidth float64
	// Background is nil for a transparent canvas.
	Background color.Color
}

// DefaultOptions returns a transparent 400x150 canvas with black ink.
func DefaultOptions() Options {
	return Options{
		Width:       400,
		Height:      150,
		Ink:         color.NRGBA{A: 0xFF},
		StrokeWidth: 2.5,
	}
}

// OptionsFromConfig converts capture configuration into raster options.
func OptionsFromConfig(cfg *config.CaptureConfig) (Options, error) {
	ink, err := ParseHexColor(cfg.InkColor)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Width:       cfg.CanvasWidth,
		Height:      cfg.CanvasHeight,
		Ink:         ink,
		StrokeWidth: cfg.StrokeWidth,
	}
	if cfg.Background == "white" {
		opts.Background = color.White
	}
	return opts, nil
}

// ParseHexColor parses a #rrggbb color.
func ParseHexColor(s string) (color.NRGBA, error) {
	if !config.HexColorRegex.MatchString(s) {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

func (o Options) bounds() image.Rectangle {
	return image.Rect(0, 0, o.Width, o.Height)
}

// finish checks the signer, encodes the raster and builds the signature.
func finish(ctx context.Context, img image.Image, opts Options, method Method, signer Signer) (*Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img = fitCanvas(img, opts)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}
	return &Signature{
		PNG:    buf.Bytes(),
		Width:  opts.Width,
		Height: opts.Height,
		Method: method,
		Signer: Signer{Name: strings.TrimSpace(signer.Name), Email: strings.TrimSpace(signer.Email)},
	}, nil
}

// fitCanvas guarantees the configured output size regardless of the
// rasterizer's rounding.
func fitCanvas(img image.Image, opts Options) image.Image {
	b := img.Bounds()
	if b.Dx() == opts.Width && b.Dy() == opts.Height {
		return img
	}
	out := image.NewNRGBA(opts.bounds())
	for y := 0; y < opts.Height && y < b.Dy(); y++ {
		for x := 0; x < opts.Width && x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
