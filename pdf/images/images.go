// Package images converts raster images into PDF image XObjects.
package images

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/filters"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
)

// Common errors
var (
	ErrDecodeFailed      = errors.New("image decode failed")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
)

// MaxPixels bounds the size of images accepted for embedding.
const MaxPixels = 8192 * 8192

// ColorSpace represents a PDF color space.
type ColorSpace string

const (
	ColorSpaceGray ColorSpace = "DeviceGray"
	ColorSpaceRGB  ColorSpace = "DeviceRGB"
	ColorSpaceCMYK ColorSpace = "DeviceCMYK"
)

// PDFImage represents an image ready for PDF embedding.
type PDFImage struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       ColorSpace

	// Data is the encoded sample data; Filter names its encoding.
	Data   []byte
	Filter string

	// AlphaData holds Flate-compressed 8-bit alpha samples. It is empty
	// for fully opaque images.
	AlphaData []byte

	// Format is the name of the source encoding ("png", "jpeg", ...).
	Format string
}

// Fingerprint returns a stable digest of encoded image bytes, used to embed
// identical images only once.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewPDFImageFromBytes decodes PNG, JPEG, GIF, BMP or WebP data.
func NewPDFImageFromBytes(data []byte) (*PDFImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}

	// Baseline JPEGs are embedded as they are.
	if format == "jpeg" {
		if cs, ok := jpegColorSpace(cfg.ColorModel); ok {
			return &PDFImage{
				Width:            cfg.Width,
				Height:           cfg.Height,
				BitsPerComponent: 8,
				ColorSpace:       cs,
				Data:             data,
				Filter:           "DCTDecode",
				Format:           format,
			}, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	pdfImg, err := NewPDFImageFromImage(img)
	if err != nil {
		return nil, err
	}
	pdfImg.Format = format
	return pdfImg, nil
}

func jpegColorSpace(m color.Model) (ColorSpace, bool) {
	switch m {
	case color.GrayModel:
		return ColorSpaceGray, true
	case color.YCbCrModel:
		return ColorSpaceRGB, true
	}
	// CMYK JPEGs are often stored inverted; re-encode them instead.
	return "", false
}

// NewPDFImageFromImage converts a decoded image. Colors are written
// un-premultiplied so that anti-aliased edges keep their color.
func NewPDFImageFromImage(img image.Image) (*PDFImage, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}

	gray := isGray(img.ColorModel())
	components := 3
	colorSpace := ColorSpaceRGB
	if gray {
		components = 1
		colorSpace = ColorSpaceGray
	}

	pixels := make([]byte, 0, width*height*components)
	alpha := make([]byte, 0, width*height)
	opaque := true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if gray {
				pixels = append(pixels, c.R)
			} else {
				pixels = append(pixels, c.R, c.G, c.B)
			}
			alpha = append(alpha, c.A)
			if c.A != 0xFF {
				opaque = false
			}
		}
	}

	data, err := filters.FlateEncode(pixels)
	if err != nil {
		return nil, err
	}
	pdfImg := &PDFImage{
		Width:            width,
		Height:           height,
		BitsPerComponent: 8,
		ColorSpace:       colorSpace,
		Data:             data,
		Filter:           "FlateDecode",
	}
	if !opaque {
		if pdfImg.AlphaData, err = filters.FlateEncode(alpha); err != nil {
			return nil, err
		}
	}
	return pdfImg, nil
}

func isGray(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}

// HasAlpha returns true if the image has an alpha channel.
func (img *PDFImage) HasAlpha() bool {
	return len(img.AlphaData) > 0
}

// XObject returns the image XObject stream. smask, when non-nil, is the
// reference of the soft mask built by SMask.
func (img *PDFImage) XObject(smask *generic.Reference) *generic.StreamObject {
	dict := generic.NewDictionary()
	dict.Set("Type", generic.NameObject("XObject"))
	dict.Set("Subtype", generic.NameObject("Image"))
	dict.Set("Width", generic.IntegerObject(img.Width))
	dict.Set("Height", generic.IntegerObject(img.Height))
	dict.Set("ColorSpace", generic.NameObject(img.ColorSpace))
	dict.Set("BitsPerComponent", generic.IntegerObject(img.BitsPerComponent))
	dict.Set("Filter", generic.NameObject(img.Filter))
	if smask != nil {
		dict.Set("SMask", *smask)
	}
	return generic.NewStream(dict, img.Data)
}

// SMask returns the soft mask stream for the alpha channel, or nil when
// the image is opaque.
func (img *PDFImage) SMask() *generic.StreamObject {
	if !img.HasAlpha() {
		return nil
	}
	dict := generic.NewDictionary()
	dict.Set("Type", generic.NameObject("XObject"))
	dict.Set("Subtype", generic.NameObject("Image"))
	dict.Set("Width", generic.IntegerObject(img.Width))
	dict.Set("Height", generic.IntegerObject(img.Height))
	dict.Set("ColorSpace", generic.NameObject(ColorSpaceGray))
	dict.Set("BitsPerComponent", generic.IntegerObject(8))
	dict.Set("Filter", generic.NameObject("FlateDecode"))
	return generic.NewStream(dict, img.AlphaData)
}
