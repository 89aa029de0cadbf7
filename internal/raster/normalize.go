package raster

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f64"

	"github.com/banshee-data/viewfinder/internal/monitoring"
)

// OrientationTransform returns the drawing transform that renders a frame
// tagged o upright onto a canvas of w by h. It works in a y-up space with
// the origin at the bottom-left of the canvas. For Left and Right, (w, h)
// is the already swapped canvas extent.
func OrientationTransform(o Orientation, w, h float64) Affine {
	t := Identity()

	switch o.Base() {
	case OrientationDown:
		t = t.Translate(w, h).Rotate(math.Pi)
	case OrientationLeft:
		t = t.Translate(w, 0).Rotate(math.Pi / 2)
	case OrientationRight:
		t = t.Translate(0, h).Rotate(-math.Pi / 2)
	}

	if o.Mirrored() {
		switch o.Base() {
		case OrientationUp, OrientationDown:
			t = t.Translate(w, 0).Scale(-1, 1)
		case OrientationLeft, OrientationRight:
			t = t.Translate(h, 0).Scale(-1, 1)
		}
	}
	return t
}

// pixelTransform converts OrientationTransform into a mapping from source
// pixel coordinates (y down) to destination pixel coordinates (y down).
func pixelTransform(o Orientation, srcH, dstW, dstH int) Affine {
	toDrawing := NewAffine(1, 0, 0, 0, -1, float64(srcH))
	fromDrawing := NewAffine(1, 0, 0, 0, -1, float64(dstH))
	return fromDrawing.Mul(OrientationTransform(o, float64(dstW), float64(dstH))).Mul(toDrawing)
}

// Normalize returns a new raster whose pixels look upright with no
// mirroring and whose orientation is Up. An Up source yields an independent
// byte-identical copy. Width and height swap for the quarter-turn
// orientations. The source is never modified; when no destination can be
// allocated a *RenderTargetError is returned.
func Normalize(src *Raster) (*Raster, error) {
	if src == nil {
		return nil, errors.New("raster: nil source")
	}
	o := src.Orientation
	if !o.Valid() {
		return nil, fmt.Errorf("raster: invalid orientation %d", int(o))
	}
	if o == OrientationUp {
		return src.Clone(), nil
	}

	dw, dh := src.width, src.height
	if o.QuarterTurn() {
		dw, dh = dh, dw
	}
	dst, err := New(src.format, dw, dh, OrientationUp)
	if err != nil {
		monitoring.Logf("normalize %s %dx%d: %v", o, src.width, src.height, err)
		return nil, err
	}
	dst.Scale = src.Scale

	inv, err := pixelTransform(o, src.height, dw, dh).Invert()
	if err != nil {
		return nil, err
	}
	remap(dst, src, inv.Aff3())
	return dst, nil
}

// remap fills dst by sampling src at the pixel each destination pixel
// centre maps back to. inv maps destination coordinates to source
// coordinates.
func remap(dst, src *Raster, inv f64.Aff3) {
	bpp := dst.format.BytesPerPixel()
	for y := 0; y < dst.height; y++ {
		dy := float64(y) + 0.5
		row := dst.pix[y*dst.stride:]
		for x := 0; x < dst.width; x++ {
			dx := float64(x) + 0.5
			sx := int(math.Floor(inv[0]*dx + inv[1]*dy + inv[2]))
			sy := int(math.Floor(inv[3]*dx + inv[4]*dy + inv[5]))
			if sx < 0 || sx >= src.width || sy < 0 || sy >= src.height {
				continue
			}
			off := sy*src.stride + sx*bpp
			copy(row[x*bpp:(x+1)*bpp], src.pix[off:off+bpp])
		}
	}
}
