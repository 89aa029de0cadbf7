package raster

import "fmt"

// ColorSpace identifies the colour model of a raster's components.
type ColorSpace int

const (
	ColorSpaceGray ColorSpace = iota
	ColorSpaceRGB
	ColorSpaceCMYK
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceGray:
		return "gray"
	case ColorSpaceRGB:
		return "rgb"
	case ColorSpaceCMYK:
		return "cmyk"
	default:
		return fmt.Sprintf("ColorSpace(%d)", int(c))
	}
}

// components returns the stored component count per pixel. RGB is always
// stored with an alpha component.
func (c ColorSpace) components() int {
	switch c {
	case ColorSpaceGray:
		return 1
	case ColorSpaceRGB, ColorSpaceCMYK:
		return 4
	}
	return 0
}

// PixelFormat describes the layout of one pixel.
type PixelFormat struct {
	ColorSpace       ColorSpace `json:"color_space"`
	BitsPerComponent int        `json:"bits_per_component"`
}

// Common formats.
var (
	FormatGray8  = PixelFormat{ColorSpaceGray, 8}
	FormatGray16 = PixelFormat{ColorSpaceGray, 16}
	FormatRGBA8  = PixelFormat{ColorSpaceRGB, 8}
	FormatRGBA16 = PixelFormat{ColorSpaceRGB, 16}
	FormatCMYK8  = PixelFormat{ColorSpaceCMYK, 8}
)

func (f PixelFormat) String() string {
	return fmt.Sprintf("%s/%d", f.ColorSpace, f.BitsPerComponent)
}

// BytesPerPixel returns the stored size of one pixel, or 0 when the format
// is not byte aligned.
func (f PixelFormat) BytesPerPixel() int {
	switch f.BitsPerComponent {
	case 8, 16, 32:
		return f.ColorSpace.components() * f.BitsPerComponent / 8
	}
	return 0
}

// BitsPerPixel returns BytesPerPixel in bits.
func (f PixelFormat) BitsPerPixel() int {
	return f.BytesPerPixel() * 8
}

// Renderable reports whether a destination canvas can be allocated for f.
func (f PixelFormat) Renderable() bool {
	switch f {
	case FormatGray8, FormatGray16, FormatRGBA8, FormatRGBA16, FormatCMYK8:
		return true
	}
	return false
}

// MaxPixels bounds the size of any canvas this package allocates.
const MaxPixels = 1 << 28

// RenderTargetError reports that a destination raster could not be
// constructed. The source raster is never modified when it is returned.
type RenderTargetError struct {
	Format PixelFormat
	Width  int
	Height int
	Reason string
}

func (e *RenderTargetError) Error() string {
	return fmt.Sprintf("raster: cannot create %dx%d %s render target: %s", e.Width, e.Height, e.Format, e.Reason)
}

func checkRenderTarget(f PixelFormat, w, h int) error {
	fail := func(reason string) error {
		return &RenderTargetError{Format: f, Width: w, Height: h, Reason: reason}
	}
	switch {
	case !f.Renderable():
		return fail("unsupported pixel format")
	case w <= 0 || h <= 0:
		return fail("empty canvas")
	case int64(w)*int64(h) > MaxPixels:
		return fail("canvas too large")
	}
	return nil
}
