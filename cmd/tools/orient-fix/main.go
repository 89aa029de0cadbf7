// Command orient-fix bakes orientation tags into image pixels so the files
// display upright in viewers that ignore EXIF orientation.
//
// Usage:
//
//	orient-fix [-o dir] [-fmt png] [-orientation right] [-remote http://host:8090] file...
//
// Files are normalized locally unless -remote names a running viewfinder
// server, in which case the server's /api/normalize endpoint does the work.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/viewfinder/internal/fsutil"
	"github.com/banshee-data/viewfinder/internal/raster"
	"github.com/banshee-data/viewfinder/internal/review"
)

// options controls how each file is processed.
type options struct {
	outDir      string
	codec       string
	orientation string
	quality     int
	remote      *review.Client
	fs          fsutil.FileSystem
}

func main() {
	outDir := flag.String("o", "", "output directory (default: next to each input)")
	codec := flag.String("fmt", "", "output format: png, jpeg, bmp, tiff or gif (default: input format)")
	orientation := flag.String("orientation", "", "override the orientation tag (name or EXIF value 1-8)")
	quality := flag.Int("q", 92, "JPEG quality")
	remote := flag.String("remote", "", "normalize through a viewfinder server at this base URL")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: orient-fix [flags] file...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := options{
		outDir:      *outDir,
		codec:       *codec,
		orientation: *orientation,
		quality:     *quality,
		fs:          fsutil.OSFileSystem{},
	}
	if *remote != "" {
		opts.remote = review.NewClient(*remote)
	}
	if opts.outDir != "" {
		if err := opts.fs.MkdirAll(opts.outDir, 0o755); err != nil {
			log.Fatalf("create output directory: %v", err)
		}
	}

	ctx := context.Background()
	failed := 0
	for _, in := range flag.Args() {
		out, src, err := fixFile(ctx, in, opts)
		if err != nil {
			log.Printf("%s: %v", in, err)
			failed++
			continue
		}
		log.Printf("%s (%s) -> %s", in, src, out)
	}
	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, flag.NArg())
	}
}

// outputPath returns where the upright copy of in is written.
func outputPath(in, outDir string, codec raster.Codec) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	ext := "." + codec.String()
	if codec == raster.CodecJPEG {
		ext = ".jpg"
	}
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(in)
		base += "_upright"
	}
	return filepath.Join(dir, base+ext)
}

// fixFile normalizes one file and returns the output path and the source
// orientation.
func fixFile(ctx context.Context, in string, opts options) (string, raster.Orientation, error) {
	codec, err := raster.CodecFromFilename(in)
	if opts.codec != "" {
		codec, err = raster.ParseCodec(opts.codec)
	}
	if err != nil {
		return "", raster.OrientationUp, err
	}

	data, err := opts.fs.ReadFile(in)
	if err != nil {
		return "", raster.OrientationUp, err
	}

	var (
		encoded []byte
		src     raster.Orientation
	)
	if opts.remote != nil {
		res, err := opts.remote.Normalize(ctx, data, opts.orientation, codec)
		if err != nil {
			return "", raster.OrientationUp, err
		}
		encoded, src = res.Data, res.SourceOrientation
	} else {
		if encoded, src, err = normalizeLocal(data, opts.orientation, codec, opts.quality); err != nil {
			return "", raster.OrientationUp, err
		}
	}

	out := outputPath(in, opts.outDir, codec)
	if err := fsutil.WriteFileAtomic(opts.fs, out, encoded, 0o644); err != nil {
		return "", src, err
	}
	return out, src, nil
}

func normalizeLocal(data []byte, override string, codec raster.Codec, quality int) ([]byte, raster.Orientation, error) {
	img, err := raster.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, raster.OrientationUp, err
	}
	if override != "" {
		if img.Orientation, err = raster.ParseOrientation(override); err != nil {
			return nil, raster.OrientationUp, err
		}
	}
	src := img.Orientation
	upright, err := raster.Normalize(img)
	if err != nil {
		return nil, src, err
	}
	var buf bytes.Buffer
	if err := raster.Encode(&buf, upright, codec, &raster.EncodeOptions{JPEGQuality: quality}); err != nil {
		return nil, src, err
	}
	return buf.Bytes(), src, nil
}
