package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxDecodeBytes caps the size of an encoded image accepted by Decode.
const MaxDecodeBytes = 64 << 20

// Codec is an encoded image container.
type Codec int

const (
	CodecPNG Codec = iota
	CodecJPEG
	CodecBMP
	CodecTIFF
	CodecGIF
)

var codecNames = map[Codec]string{
	CodecPNG:  "png",
	CodecJPEG: "jpeg",
	CodecBMP:  "bmp",
	CodecTIFF: "tiff",
	CodecGIF:  "gif",
}

func (f Codec) String() string {
	if s, ok := codecNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Codec(%d)", int(f))
}

// ContentType returns the MIME type for f.
func (f Codec) ContentType() string {
	return "image/" + f.String()
}

// ParseCodec accepts a codec name or a file extension with or without
// the leading dot.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return CodecPNG, nil
	case "jpg", "jpeg":
		return CodecJPEG, nil
	case "bmp":
		return CodecBMP, nil
	case "tif", "tiff":
		return CodecTIFF, nil
	case "gif":
		return CodecGIF, nil
	}
	return CodecPNG, fmt.Errorf("unsupported image format %q", s)
}

// CodecFromFilename picks the format from a file extension.
func CodecFromFilename(name string) (Codec, error) {
	return ParseCodec(filepath.Ext(name))
}

func (f Codec) imaging() (imaging.Format, error) {
	switch f {
	case CodecPNG:
		return imaging.PNG, nil
	case CodecJPEG:
		return imaging.JPEG, nil
	case CodecBMP:
		return imaging.BMP, nil
	case CodecTIFF:
		return imaging.TIFF, nil
	case CodecGIF:
		return imaging.GIF, nil
	}
	return 0, fmt.Errorf("unsupported image format %s", f)
}

// Decode reads an encoded image. The orientation tag comes from EXIF
// metadata when present and is Up otherwise; the pixels are left as stored.
func Decode(r io.Reader) (*Raster, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDecodeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("raster: read image: %w", err)
	}
	if len(data) > MaxDecodeBytes {
		return nil, fmt.Errorf("raster: image exceeds %d bytes", MaxDecodeBytes)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode image header: %w", err)
	}
	if err := checkRenderTarget(modelFormat(cfg.ColorModel), cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode image: %w", err)
	}
	return FromImage(img, ReadEXIFOrientation(bytes.NewReader(data)))
}

// modelFormat predicts the pixel format FromImage picks for a decoded image
// with colour model m.
func modelFormat(m color.Model) PixelFormat {
	switch m {
	case color.GrayModel:
		return FormatGray8
	case color.Gray16Model:
		return FormatGray16
	case color.CMYKModel:
		return FormatCMYK8
	case color.RGBA64Model, color.NRGBA64Model:
		return FormatRGBA16
	}
	return FormatRGBA8
}

// ReadEXIFOrientation returns the orientation recorded in the EXIF block of
// a JPEG or TIFF stream. Missing or malformed metadata yields Up.
func ReadEXIFOrientation(r io.Reader) Orientation {
	x, err := exif.Decode(r)
	if err != nil {
		return OrientationUp
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationUp
	}
	v, err := tag.Int(0)
	if err != nil {
		return OrientationUp
	}
	o, _ := OrientationFromEXIF(v)
	return o
}

// EncodeOptions tunes Encode.
type EncodeOptions struct {
	// JPEGQuality is 1..100; zero selects the encoder default.
	JPEGQuality int
}

// Encode writes the stored pixels of r. The orientation tag is not written,
// so callers normalize first when the reader will not see the tag.
func Encode(w io.Writer, r *Raster, f Codec, opts *EncodeOptions) error {
	img, err := r.Image()
	if err != nil {
		return err
	}
	return EncodeImage(w, img, f, opts)
}

// EncodeImage writes any image.Image in format f.
func EncodeImage(w io.Writer, img image.Image, f Codec, opts *EncodeOptions) error {
	format, err := f.imaging()
	if err != nil {
		return err
	}
	var encOpts []imaging.EncodeOption
	if opts != nil && opts.JPEGQuality > 0 {
		encOpts = append(encOpts, imaging.JPEGQuality(opts.JPEGQuality))
	}
	if err := imaging.Encode(w, img, format, encOpts...); err != nil {
		return fmt.Errorf("raster: encode %s: %w", f, err)
	}
	return nil
}
