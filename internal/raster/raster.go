// Package raster holds captured frames as owned pixel buffers and bakes
// their orientation tag into the pixels.
package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/banshee-data/viewfinder/internal/geometry"
)

// Raster is a bitmap with an orientation tag. The pixel layout of the
// renderable formats matches the corresponding image package types, so
// 16-bit components are big-endian.
type Raster struct {
	format PixelFormat
	width  int
	height int
	stride int
	pix    []byte

	// Orientation tells a viewer how to transform the stored pixels.
	Orientation Orientation
	// Scale is the display scale factor carried through unchanged.
	Scale float64
}

// New allocates a zeroed raster.
func New(format PixelFormat, width, height int, o Orientation) (*Raster, error) {
	if err := checkRenderTarget(format, width, height); err != nil {
		return nil, err
	}
	stride := width * format.BytesPerPixel()
	return &Raster{
		format:      format,
		width:       width,
		height:      height,
		stride:      stride,
		pix:         make([]byte, stride*height),
		Orientation: o,
		Scale:       1,
	}, nil
}

// FromPix wraps a tightly packed pixel buffer. Any byte-aligned format is
// accepted, including ones that cannot be rendered into.
func FromPix(format PixelFormat, width, height int, pix []byte, o Orientation) (*Raster, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("raster: format %s is not byte aligned", format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*bpp {
		return nil, fmt.Errorf("raster: buffer holds %d bytes, %dx%d %s needs %d", len(pix), width, height, format, width*height*bpp)
	}
	return &Raster{
		format:      format,
		width:       width,
		height:      height,
		stride:      width * bpp,
		pix:         pix,
		Orientation: o,
		Scale:       1,
	}, nil
}

// FromImage copies img into a new raster. Gray, Gray16, RGBA, RGBA64 and
// CMYK images keep their layout; 16-bit non-premultiplied images become
// RGBA64 and everything else becomes RGBA.
func FromImage(img image.Image, o Orientation) (*Raster, error) {
	if img == nil {
		return nil, errors.New("raster: nil image")
	}
	b := img.Bounds()
	var format PixelFormat
	switch img.(type) {
	case *image.Gray:
		format = FormatGray8
	case *image.Gray16:
		format = FormatGray16
	case *image.CMYK:
		format = FormatCMYK8
	case *image.RGBA64, *image.NRGBA64:
		format = FormatRGBA16
	default:
		format = FormatRGBA8
	}
	r, err := New(format, b.Dx(), b.Dy(), o)
	if err != nil {
		return nil, err
	}

	if pix, stride, ok := imagePix(img); ok && sameLayout(img, format) {
		rowBytes := r.stride
		for y := 0; y < r.height; y++ {
			copy(r.pix[y*r.stride:y*r.stride+rowBytes], pix[y*stride:y*stride+rowBytes])
		}
		return r, nil
	}

	dst, _ := r.Image()
	draw.Draw(dst.(draw.Image), dst.Bounds(), img, b.Min, draw.Src)
	return r, nil
}

// Format returns the pixel format.
func (r *Raster) Format() PixelFormat { return r.format }

// Width returns the stored width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the stored height in pixels.
func (r *Raster) Height() int { return r.height }

// Stride returns the byte distance between rows.
func (r *Raster) Stride() int { return r.stride }

// Pix returns the pixel buffer. It is owned by the raster.
func (r *Raster) Pix() []byte { return r.pix }

// Bounds returns the stored pixel rectangle.
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.width, r.height) }

// DisplaySize returns the dimensions a viewer shows after applying the
// orientation tag.
func (r *Raster) DisplaySize() (int, int) {
	if r.Orientation.QuarterTurn() {
		return r.height, r.width
	}
	return r.width, r.height
}

// Clone returns an independent copy with identical bytes and metadata.
func (r *Raster) Clone() *Raster {
	c := *r
	c.pix = make([]byte, len(r.pix))
	copy(c.pix, r.pix)
	return &c
}

// Image returns an image.Image view sharing the raster's pixel buffer.
func (r *Raster) Image() (image.Image, error) {
	rect := r.Bounds()
	switch r.format {
	case FormatGray8:
		return &image.Gray{Pix: r.pix, Stride: r.stride, Rect: rect}, nil
	case FormatGray16:
		return &image.Gray16{Pix: r.pix, Stride: r.stride, Rect: rect}, nil
	case FormatRGBA8:
		return &image.RGBA{Pix: r.pix, Stride: r.stride, Rect: rect}, nil
	case FormatRGBA16:
		return &image.RGBA64{Pix: r.pix, Stride: r.stride, Rect: rect}, nil
	case FormatCMYK8:
		return &image.CMYK{Pix: r.pix, Stride: r.stride, Rect: rect}, nil
	}
	return nil, &RenderTargetError{Format: r.format, Width: r.width, Height: r.height, Reason: "no image equivalent"}
}

// Crop returns a copy of the region of stored pixels selected by a
// normalized rectangle. The orientation tag is kept. An empty selection
// returns an error.
func (r *Raster) Crop(rect geometry.NormalizedRect) (*Raster, error) {
	x0 := int(math.Floor(clampUnit(rect.X) * float64(r.width)))
	y0 := int(math.Floor(clampUnit(rect.Y) * float64(r.height)))
	x1 := int(math.Ceil(clampUnit(rect.X+rect.Width) * float64(r.width)))
	y1 := int(math.Ceil(clampUnit(rect.Y+rect.Height) * float64(r.height)))
	if x1 <= x0 || y1 <= y0 {
		return nil, fmt.Errorf("raster: crop %+v selects no pixels", rect)
	}

	bpp := r.format.BytesPerPixel()
	w, h := x1-x0, y1-y0
	out := &Raster{
		format:      r.format,
		width:       w,
		height:      h,
		stride:      w * bpp,
		pix:         make([]byte, w*h*bpp),
		Orientation: r.Orientation,
		Scale:       r.Scale,
	}
	for y := 0; y < h; y++ {
		src := r.pix[(y0+y)*r.stride+x0*bpp:]
		copy(out.pix[y*out.stride:(y+1)*out.stride], src[:w*bpp])
	}
	return out, nil
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func imagePix(img image.Image) ([]byte, int, bool) {
	switch m := img.(type) {
	case *image.Gray:
		return m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y):], m.Stride, true
	case *image.Gray16:
		return m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y):], m.Stride, true
	case *image.RGBA:
		return m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y):], m.Stride, true
	case *image.RGBA64:
		return m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y):], m.Stride, true
	case *image.CMYK:
		return m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y):], m.Stride, true
	}
	return nil, 0, false
}

func sameLayout(img image.Image, f PixelFormat) bool {
	switch img.(type) {
	case *image.Gray:
		return f == FormatGray8
	case *image.Gray16:
		return f == FormatGray16
	case *image.RGBA:
		return f == FormatRGBA8
	case *image.RGBA64:
		return f == FormatRGBA16
	case *image.CMYK:
		return f == FormatCMYK8
	}
	return false
}
