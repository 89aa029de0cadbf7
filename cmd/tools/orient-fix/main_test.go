package main

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/viewfinder/internal/fsutil"
	"github.com/banshee-data/viewfinder/internal/httputil"
	"github.com/banshee-data/viewfinder/internal/raster"
	"github.com/banshee-data/viewfinder/internal/review"
	"github.com/banshee-data/viewfinder/internal/testutil"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/in/shot_upright.png", outputPath("/in/shot.png", "", raster.CodecPNG))
	assert.Equal(t, "/out/shot.jpg", outputPath("/in/shot.png", "/out", raster.CodecJPEG))
	assert.Equal(t, "/out/a.b.tiff", outputPath("a.b.jpeg", "/out", raster.CodecTIFF))
}

func TestFixFileLocal(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("/in", 0o755))
	require.NoError(t, fsys.WriteFile("/in/shot.png", testutil.PNGBytes(t, testutil.PatternRGBA(4, 2)), 0o644))

	out, src, err := fixFile(context.Background(), "/in/shot.png", options{orientation: "left", fs: fsys})
	require.NoError(t, err)
	assert.Equal(t, "/in/shot_upright.png", out)
	assert.Equal(t, raster.OrientationLeft, src)

	data, err := fsys.ReadFile(out)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	_, _, err = fixFile(context.Background(), "/in/missing.png", options{fs: fsys})
	assert.Error(t, err)
	_, _, err = fixFile(context.Background(), "/in/shot.png", options{codec: "webp", fs: fsys})
	assert.Error(t, err)
	_, _, err = fixFile(context.Background(), "/in/shot.png", options{orientation: "sideways", fs: fsys})
	assert.Error(t, err)
}

func TestFixFileRemote(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("/in", 0o755))
	require.NoError(t, fsys.WriteFile("/in/shot.jpg", []byte("jpeg bytes"), 0o644))

	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "image/jpeg", []byte("upright bytes"))
	client := &review.Client{BaseURL: "http://viewfinder.local", HTTP: mock}

	out, _, err := fixFile(context.Background(), "/in/shot.jpg", options{outDir: "/in", remote: client, fs: fsys})
	require.NoError(t, err)
	assert.Equal(t, "/in/shot.jpg", out, "an explicit output directory may overwrite in place")

	data, err := fsys.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "upright bytes", string(data))

	req, body := mock.Request(0)
	assert.Equal(t, "/api/normalize", req.URL.Path)
	assert.Equal(t, "jpeg", req.URL.Query().Get("fmt"))
	assert.Equal(t, "jpeg bytes", string(body))
}
