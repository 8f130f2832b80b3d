package stamp

import (
	"fmt"

	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/layout"
)

// ImageScaleMode specifies how an image is scaled within its field box.
type ImageScaleMode int

const (
	// ImageScaleStretch stretches the image to exactly fill the box.
	ImageScaleStretch ImageScaleMode = iota
	// ImageScaleFit scales the image to fit within the box while keeping
	// its aspect ratio.
	ImageScaleFit
	// ImageScaleFill covers the box while keeping the aspect ratio; the
	// overflow is clipped.
	ImageScaleFill
)

// String returns a string representation of the scale mode.
func (m ImageScaleMode) String() string {
	switch m {
	case ImageScaleStretch:
		return "stretch"
	case ImageScaleFit:
		return "fit"
	case ImageScaleFill:
		return "fill"
	default:
		return "unknown"
	}
}

// ParseImageScaleMode parses a string to ImageScaleMode.
func ParseImageScaleMode(s string) (ImageScaleMode, error) {
	switch s {
	case "stretch", "":
		return ImageScaleStretch, nil
	case "fit":
		return ImageScaleFit, nil
	case "fill":
		return ImageScaleFill, nil
	default:
		return ImageScaleStretch, fmt.Errorf("invalid scale mode: %s (valid: stretch, fit, fill)", s)
	}
}

// FieldBox returns the field box in displayed page space: PDF orientation
// with the origin at the lower-left corner of the visible page.
//
//	absX = xFraction * pageW
//	pdfY = pageH - yFraction*pageH - heightPx*scale
func FieldBox(f field.SignedField, pageW, pageH, pointsPerPixel float64) layout.Rectangle {
	w := f.WidthPx * pointsPerPixel
	h := f.HeightPx * pointsPerPixel
	return layout.Rectangle{
		X:      f.XFraction * pageW,
		Y:      pageH - f.YFraction*pageH - h,
		Width:  w,
		Height: h,
	}
}

// ImageRect places an image of the given pixel size inside box.
func ImageRect(mode ImageScaleMode, imgW, imgH int, box layout.Rectangle) layout.Rectangle {
	item := layout.Rectangle{Width: float64(imgW), Height: float64(imgH)}
	switch mode {
	case ImageScaleFit:
		return layout.FitInto(item, box, layout.AlignCenter, layout.AlignCenter)
	case ImageScaleFill:
		return layout.FillInto(item, box, layout.AlignCenter, layout.AlignCenter)
	}
	return box
}
