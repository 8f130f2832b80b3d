// Package layout provides PDF page geometry and positioning utilities.
package layout

import (
	"math"
)

// Unit represents a measurement unit.
type Unit float64

const (
	// Points - the base PDF unit (1/72 inch)
	Pt Unit = 1
	// Inches
	In Unit = 72
	// Millimeters
	Mm Unit = 72 / 25.4
	// Pixels at 96 DPI
	Px Unit = 72.0 / 96.0
)

// ToPoints converts a value in the given unit to points.
func ToPoints(value float64, unit Unit) float64 {
	return value * float64(unit)
}

// FromPoints converts points to the given unit.
func FromPoints(points float64, unit Unit) float64 {
	return points / float64(unit)
}

// PageSize represents standard page dimensions.
type PageSize struct {
	Width  float64
	Height float64
}

// Standard page sizes in points
var (
	A4     = PageSize{595, 842}
	A5     = PageSize{420, 595}
	Letter = PageSize{612, 792}
	Legal  = PageSize{612, 1008}
)

// PageSizes maps lowercase names to standard sizes.
var PageSizes = map[string]PageSize{
	"a4":     A4,
	"a5":     A5,
	"letter": Letter,
	"legal":  Legal,
}

// Landscape returns the page size in landscape orientation.
func (p PageSize) Landscape() PageSize {
	if p.Width < p.Height {
		return PageSize{p.Height, p.Width}
	}
	return p
}

// Point represents a 2D point.
type Point struct {
	X, Y float64
}

// Rectangle is an axis-aligned box anchored at its lower-left corner.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rectangle) Right() float64 { return r.X + r.Width }

// Top returns the y coordinate of the top edge.
func (r Rectangle) Top() float64 { return r.Y + r.Height }

func (r Rectangle) corners() [4]Point {
	return [4]Point{
		{r.X, r.Y},
		{r.Right(), r.Y},
		{r.X, r.Top()},
		{r.Right(), r.Top()},
	}
}

// Alignment controls placement of an item inside a larger box.
type Alignment int

const (
	AlignStart Alignment = iota
	AlignCenter
	AlignEnd
)

// Position calculates position based on alignment.
func Position(containerSize, itemSize float64, align Alignment) float64 {
	switch align {
	case AlignCenter:
		return (containerSize - itemSize) / 2
	case AlignEnd:
		return containerSize - itemSize
	default:
		return 0
	}
}

// FitInto scales item to lie inside container while preserving its aspect
// ratio and aligns it there.
func FitInto(item, container Rectangle, hAlign, vAlign Alignment) Rectangle {
	return scaleInto(item, container, math.Min, hAlign, vAlign)
}

// FillInto scales item to cover container while preserving its aspect
// ratio. The result may extend past the container.
func FillInto(item, container Rectangle, hAlign, vAlign Alignment) Rectangle {
	return scaleInto(item, container, math.Max, hAlign, vAlign)
}

func scaleInto(item, container Rectangle, pick func(a, b float64) float64, hAlign, vAlign Alignment) Rectangle {
	if item.Width <= 0 || item.Height <= 0 {
		return container
	}
	scale := pick(container.Width/item.Width, container.Height/item.Height)
	w, h := item.Width*scale, item.Height*scale
	return Rectangle{
		X:      container.X + Position(container.Width, w, hAlign),
		Y:      container.Y + Position(container.Height, h, vAlign),
		Width:  w,
		Height: h,
	}
}

// Transform represents a 2D affine transformation matrix [A B C D E F].
type Transform struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{1, 0, 0, 1, 0, 0}
}

// Translate creates a translation transform.
func Translate(dx, dy float64) Transform {
	return Transform{1, 0, 0, 1, dx, dy}
}

// ScaleTransform creates a scale transform.
func ScaleTransform(sx, sy float64) Transform {
	return Transform{sx, 0, 0, sy, 0, 0}
}

// BoxTransform maps the unit square onto r.
func BoxTransform(r Rectangle) Transform {
	return Transform{r.Width, 0, 0, r.Height, r.X, r.Y}
}

// Multiply returns the transform that applies other first and then t.
func (t Transform) Multiply(other Transform) Transform {
	return Transform{
		A: t.A*other.A + t.C*other.B,
		B: t.B*other.A + t.D*other.B,
		C: t.A*other.C + t.C*other.D,
		D: t.B*other.C + t.D*other.D,
		E: t.A*other.E + t.C*other.F + t.E,
		F: t.B*other.E + t.D*other.F + t.F,
	}
}

// Apply applies the transform to a point.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.E,
		Y: t.B*p.X + t.D*p.Y + t.F,
	}
}

// ApplyRect applies the transform to a rectangle and returns the bounding
// box of the result.
func (t Transform) ApplyRect(r Rectangle) Rectangle {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, corner := range r.corners() {
		p := t.Apply(corner)
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Inverse returns the inverse transform.
func (t Transform) Inverse() Transform {
	det := t.A*t.D - t.B*t.C
	if det == 0 {
		return Identity()
	}

	return Transform{
		A: t.D / det,
		B: -t.B / det,
		C: -t.C / det,
		D: t.A / det,
		E: (t.C*t.F - t.D*t.E) / det,
		F: (t.B*t.E - t.A*t.F) / det,
	}
}

// Array returns the six matrix entries in content stream order.
func (t Transform) Array() [6]float64 {
	return [6]float64{t.A, t.B, t.C, t.D, t.E, t.F}
}

// DisplaySize returns the size of box as a viewer shows it after applying
// rotate, which must be a multiple of 90.
func DisplaySize(box Rectangle, rotate int) (width, height float64) {
	if rotate == 90 || rotate == 270 {
		return box.Height, box.Width
	}
	return box.Width, box.Height
}

// DisplayToUser maps coordinates of the displayed page (origin at the
// visual lower-left corner, y up) to default user space of a page whose
// visible box is box and whose /Rotate is rotate.
func DisplayToUser(box Rectangle, rotate int) Transform {
	var r Transform
	switch rotate {
	case 90:
		r = Transform{0, 1, -1, 0, box.Width, 0}
	case 180:
		r = Transform{-1, 0, 0, -1, box.Width, box.Height}
	case 270:
		r = Transform{0, -1, 1, 0, 0, box.Height}
	default:
		r = Identity()
	}
	return Translate(box.X, box.Y).Multiply(r)
}
