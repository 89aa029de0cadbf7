package raster

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternRGBA returns an opaque image where every pixel is distinct.
func patternRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(x)
			img.Pix[i+1] = uint8(y)
			img.Pix[i+2] = uint8(x*7 + y*13)
			img.Pix[i+3] = 0xff
		}
	}
	return img
}

func TestNormalize_MatchesReferenceTransforms(t *testing.T) {
	src := patternRGBA(5, 3)

	tests := []struct {
		o   Orientation
		ref func(image.Image) *image.NRGBA
	}{
		{OrientationDown, imaging.Rotate180},
		{OrientationLeft, imaging.Rotate90},
		{OrientationRight, imaging.Rotate270},
		{OrientationUpMirrored, imaging.FlipH},
		{OrientationDownMirrored, imaging.FlipV},
		{OrientationLeftMirrored, imaging.Transpose},
		{OrientationRightMirrored, imaging.Transverse},
	}

	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			r, err := FromImage(src, tt.o)
			require.NoError(t, err)

			got, err := Normalize(r)
			require.NoError(t, err)

			want := tt.ref(src)
			assert.Equal(t, OrientationUp, got.Orientation)
			assert.Equal(t, want.Rect.Dx(), got.Width())
			assert.Equal(t, want.Rect.Dy(), got.Height())
			assert.True(t, bytes.Equal(want.Pix, got.Pix()), "pixels differ from reference for %s", tt.o)
		})
	}
}

func TestNormalize_UpIsIndependentCopy(t *testing.T) {
	r, err := FromImage(patternRGBA(4, 4), OrientationUp)
	require.NoError(t, err)
	r.Scale = 2

	got, err := Normalize(r)
	require.NoError(t, err)
	require.Equal(t, r.Pix(), got.Pix())
	assert.Equal(t, 2.0, got.Scale)

	got.Pix()[0] ^= 0xff
	assert.NotEqual(t, r.Pix()[0], got.Pix()[0], "copy must not share the source buffer")
}

func TestNormalize_Idempotent(t *testing.T) {
	for o := OrientationUp; o <= OrientationRightMirrored; o++ {
		r, err := FromImage(patternRGBA(6, 4), o)
		require.NoError(t, err)

		once, err := Normalize(r)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)

		if !bytes.Equal(once.Pix(), twice.Pix()) || once.Width() != twice.Width() {
			t.Errorf("%s: second normalization changed the raster", o)
		}
	}
}

func TestNormalize_DimensionsAndMetadata(t *testing.T) {
	for o := OrientationUp; o <= OrientationRightMirrored; o++ {
		r, err := New(FormatGray8, 7, 3, o)
		require.NoError(t, err)
		r.Scale = 3

		got, err := Normalize(r)
		require.NoError(t, err)

		wantW, wantH := 7, 3
		if o.QuarterTurn() {
			wantW, wantH = 3, 7
		}
		if got.Width() != wantW || got.Height() != wantH {
			t.Errorf("%s: expected %dx%d, got %dx%d", o, wantW, wantH, got.Width(), got.Height())
		}
		if got.Format() != FormatGray8 {
			t.Errorf("%s: expected format %s, got %s", o, FormatGray8, got.Format())
		}
		if got.Scale != 3 {
			t.Errorf("%s: expected scale 3, got %v", o, got.Scale)
		}
		if got.Orientation != OrientationUp {
			t.Errorf("%s: expected up, got %s", o, got.Orientation)
		}
		if r.Orientation != o {
			t.Errorf("%s: source orientation changed to %s", o, r.Orientation)
		}
	}
}

func TestNormalize_SixteenBitGray(t *testing.T) {
	const w, h = 4, 3
	src := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			src.Pix[i] = uint8(0x10 + x)
			src.Pix[i+1] = uint8(0x20 + y)
		}
	}
	r, err := FromImage(src, OrientationRight)
	require.NoError(t, err)
	require.Equal(t, FormatGray16, r.Format())

	got, err := Normalize(r)
	require.NoError(t, err)
	img, err := got.Image()
	require.NoError(t, err)
	dst := img.(*image.Gray16)

	for v := 0; v < w; v++ {
		for u := 0; u < h; u++ {
			want := src.Gray16At(v, h-1-u)
			if g := dst.Gray16At(u, v); g != want {
				t.Errorf("dst(%d,%d) = %v, expected %v", u, v, g, want)
			}
		}
	}
}

func TestNormalize_CMYKKeepsFormat(t *testing.T) {
	src := image.NewCMYK(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	r, err := FromImage(src, OrientationDownMirrored)
	require.NoError(t, err)

	got, err := Normalize(r)
	require.NoError(t, err)
	assert.Equal(t, FormatCMYK8, got.Format())

	img, err := got.Image()
	require.NoError(t, err)
	dst := img.(*image.CMYK)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, src.CMYKAt(x, 1-y), dst.CMYKAt(x, y))
		}
	}
}

func TestNormalize_RenderTargetError(t *testing.T) {
	format := PixelFormat{ColorSpace: ColorSpaceRGB, BitsPerComponent: 32}
	pix := make([]byte, 2*3*format.BytesPerPixel())
	for i := range pix {
		pix[i] = uint8(i)
	}
	before := append([]byte(nil), pix...)

	r, err := FromPix(format, 2, 3, pix, OrientationLeft)
	require.NoError(t, err)

	got, err := Normalize(r)
	assert.Nil(t, got)

	var rte *RenderTargetError
	require.True(t, errors.As(err, &rte), "expected RenderTargetError, got %v", err)
	assert.Equal(t, format, rte.Format)
	assert.Equal(t, 3, rte.Width)
	assert.Equal(t, 2, rte.Height)

	assert.Equal(t, before, r.Pix())
	assert.Equal(t, OrientationLeft, r.Orientation)
}

func TestNormalize_InvalidInput(t *testing.T) {
	_, err := Normalize(nil)
	assert.Error(t, err)

	r, err := New(FormatGray8, 2, 2, Orientation(12))
	require.NoError(t, err)
	_, err = Normalize(r)
	assert.Error(t, err)
}

func TestOrientationTransform_MapsCanvasOntoCanvas(t *testing.T) {
	const sw, sh = 8.0, 5.0
	for o := OrientationUp; o <= OrientationRightMirrored; o++ {
		dw, dh := sw, sh
		if o.QuarterTurn() {
			dw, dh = sh, sw
		}
		// Source drawn at (0,0,sw,sh) must land exactly on the canvas.
		tr := OrientationTransform(o, dw, dh)
		minX, minY, maxX, maxY := 1e9, 1e9, -1e9, -1e9
		for _, c := range [][2]float64{{0, 0}, {sw, 0}, {0, sh}, {sw, sh}} {
			x, y := tr.Apply(c[0], c[1])
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
		if minX != 0 || minY != 0 || maxX != dw || maxY != dh {
			t.Errorf("%s: corners map to [%v,%v]-[%v,%v], expected [0,0]-[%v,%v]", o, minX, minY, maxX, maxY, dw, dh)
		}
	}
}

func TestPixelTransform_Right(t *testing.T) {
	// Right rotates stored pixels a quarter turn clockwise.
	got := pixelTransform(OrientationRight, 3, 3, 5)
	want := NewAffine(0, -1, 3, 1, 0, 0)
	if !got.Equal(want, 0) {
		t.Errorf("expected %v, got %v", want, got)
	}

	inv, err := got.Invert()
	require.NoError(t, err)
	if !inv.Mul(got).Equal(Identity(), 0) {
		t.Errorf("inverse does not cancel: %v", inv.Mul(got))
	}
}
