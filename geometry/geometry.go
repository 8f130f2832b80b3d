// Package geometry converts between pointer positions on a rendered page and
// resolution-independent fractions of the page content size.
//
// Fractions use a top-left origin and are always relative to the full
// rendered content size, never to the visible viewport, so a fraction
// captured at one zoom level maps to the same spot at any other.
package geometry

import (
	"math"

	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// Point is a pixel position relative to the top-left of the page content.
type Point struct {
	X, Y float64
}

// Size is a measured content size in pixels.
type Size struct {
	Width, Height float64
}

// Valid reports whether s is a usable measurement.
func (s Size) Valid() bool {
	return finitePositive(s.Width) && finitePositive(s.Height)
}

// Scale returns s multiplied by k.
func (s Size) Scale(k float64) Size {
	return Size{Width: s.Width * k, Height: s.Height * k}
}

// Fraction is a position as a fraction of the content size, each axis in
// [0,1].
type Fraction struct {
	X, Y float64
}

// Rect is an on-screen rectangle in pixels.
type Rect struct {
	X, Y, Width, Height float64
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func notReady(content Size) error {
	return sigerr.New(sigerr.KindGeometryNotReady, "content size %gx%g is not measured", content.Width, content.Height)
}

// Capture converts a pointer position into a clamped fraction.
func Capture(pointer Point, content Size) (Fraction, error) {
	if !content.Valid() {
		return Fraction{}, notReady(content)
	}
	return Fraction{
		X: clamp01(pointer.X / content.Width),
		Y: clamp01(pointer.Y / content.Height),
	}, nil
}

// Display converts a fraction back into a pixel position.
func Display(f Fraction, content Size) (Point, error) {
	if !content.Valid() {
		return Point{}, notReady(content)
	}
	return Point{X: f.X * content.Width, Y: f.Y * content.Height}, nil
}

// Clamp returns f with both axes clamped to [0,1].
func (f Fraction) Clamp() Fraction {
	return Fraction{X: clamp01(f.X), Y: clamp01(f.Y)}
}

// InRange reports whether both axes lie in [0,1].
func (f Fraction) InRange() bool {
	return f.X >= 0 && f.X <= 1 && f.Y >= 0 && f.Y <= 1
}

// Overlay returns the on-screen rectangle of a field: its position comes from
// the fraction and its reference box size is scaled by zoom.
func Overlay(f Fraction, widthPx, heightPx float64, content Size, zoom float64) (Rect, error) {
	p, err := Display(f, content)
	if err != nil {
		return Rect{}, err
	}
	if !finitePositive(zoom) {
		zoom = 1
	}
	return Rect{X: p.X, Y: p.Y, Width: widthPx * zoom, Height: heightPx * zoom}, nil
}
