package review

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/fsutil"
	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/media"
	"github.com/banshee-data/viewfinder/internal/monitoring"
	"github.com/banshee-data/viewfinder/internal/testutil"
	"github.com/banshee-data/viewfinder/internal/timeutil"
	"github.com/banshee-data/viewfinder/internal/version"
)

var epoch = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

var fillView = geometry.Viewport{FrameWidth: 100, FrameHeight: 200, FillMode: geometry.FillModeFill}

type testEnv struct {
	server  *Server
	mux     *http.ServeMux
	library *media.Library
	ledger  *db.DB
	sensor  *capture.Synthetic
	camera  *capture.Camera
}

// newTestEnv wires a synthetic 8x6 camera, an in-memory media directory and
// a temporary ledger behind a review server.
func newTestEnv(t *testing.T, withCamera bool) *testEnv {
	t.Helper()
	prev := monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	ledger, err := db.Open(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	clock := timeutil.NewManualClock(epoch)
	ledger.Clock = clock

	fsys := fsutil.NewMemoryFileSystem()
	lib, err := media.NewLibrary(fsys, "/media", ledger)
	require.NoError(t, err)

	env := &testEnv{library: lib, ledger: ledger}
	if withCamera {
		env.sensor = capture.NewSynthetic(8, 6)
		env.sensor.FS = fsys
		env.sensor.Clock = clock
		env.camera = capture.New(env.sensor, env.sensor, env.sensor, lib, capture.Options{
			VideoEnabled: true,
			Clock:        clock,
		})
	}
	env.server = NewServer(env.camera, lib, ledger, Options{Viewport: fillView, VideoExt: "json"})
	env.mux = env.server.ServeMux()
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleVersion(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(testutil.NewTestRequest(http.MethodGet, "/api/version"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got version.Info
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, version.Current(), got)
}

func TestHandlePOI(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/poi", POIRequest{
		Tap: geometry.ViewPoint{X: 25, Y: 50},
	}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var got POIResponse
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, geometry.NormalizedPoint{X: 0.25, Y: 0.75}, got.POI)
	assert.True(t, got.InRange)
	assert.False(t, got.Degenerate)
	assert.Equal(t, fillView, got.Viewport)
	assert.Equal(t, defaultAperture, got.Aperture)
	assert.Equal(t, geometry.FullFrame, got.RectOfInterest)

	// A tap past the right edge is reported raw and clamped.
	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/poi", POIRequest{
		Tap: geometry.ViewPoint{X: 150, Y: 100},
	}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, geometry.NormalizedPoint{X: 0.5, Y: -0.5}, got.POI)
	assert.Equal(t, geometry.NormalizedPoint{X: 0.5, Y: 0}, got.Clamped)
	assert.False(t, got.InRange)
}

func TestHandlePOI_DegenerateAndErrors(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/poi",
		`{"tap":{"x":10,"y":10},"viewport":{"frame_width":0,"frame_height":200,"fill_mode":"aspect_fill"}}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var got POIResponse
	testutil.DecodeJSON(t, rec, &got)
	assert.True(t, got.Degenerate)
	assert.Equal(t, geometry.Center, got.POI)

	for name, body := range map[string]string{
		"empty":         "",
		"unknown field": `{"tap":{"x":1,"y":1},"zoom":2}`,
		"bad fill mode": `{"tap":{"x":1,"y":1},"viewport":{"frame_width":1,"frame_height":1,"fill_mode":"stretch"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/poi", body))
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}
}

func TestHandleNormalize(t *testing.T) {
	env := newTestEnv(t, false)
	body := testutil.PNGBytes(t, testutil.PatternRGBA(4, 2))

	req := httptest.NewRequest(http.MethodPost, "/api/normalize?orientation=right", bytes.NewReader(body))
	rec := env.do(req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "right", rec.Header().Get("X-Source-Orientation"))
	assert.Equal(t, "4x2", rec.Header().Get("X-Source-Size"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	// Without an override or EXIF data the upload is already upright.
	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/normalize?fmt=jpeg", bytes.NewReader(body)))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "up", rec.Header().Get("X-Source-Orientation"))

	for name, path := range map[string]string{
		"bad format":      "/api/normalize?fmt=webp",
		"bad orientation": "/api/normalize?orientation=sideways",
		"bad thumb":       "/api/normalize?thumb=-1",
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader("not an image")))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestCameraRoutesWithoutCamera(t *testing.T) {
	env := newTestEnv(t, false)
	routes := []struct{ method, path, body string }{
		{http.MethodGet, "/api/camera", ""},
		{http.MethodPost, "/api/camera", `{}`},
		{http.MethodPost, "/api/focus", `{"x":1,"y":1}`},
		{http.MethodPost, "/api/capture", `{}`},
		{http.MethodPost, "/api/record/start", ""},
		{http.MethodPost, "/api/record/stop", ""},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := env.do(testutil.NewJSONRequest(t, rt.method, rt.path, rt.body))
			testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
		})
	}
}

func TestHandleCameraUpdate(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(testutil.NewTestRequest(http.MethodGet, "/api/camera"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var state capture.State
	testutil.DecodeJSON(t, rec, &state)
	assert.Equal(t, "rear", state.Position)
	assert.Equal(t, "right", state.StillOrientation)

	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/camera",
		`{"position":"front","mirror":"auto","flash":"on"}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.DecodeJSON(t, rec, &state)
	assert.Equal(t, "front", state.Position)
	assert.Equal(t, "on", state.Flash)
	assert.True(t, state.Mirrored)
	assert.Equal(t, "left_mirrored", state.StillOrientation)
	assert.True(t, env.sensor.Mirrored())

	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/camera",
		`{"toggle":true,"interface_orientation":"landscape_right"}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.DecodeJSON(t, rec, &state)
	assert.Equal(t, "rear", state.Position)
	assert.False(t, state.Mirrored)
	assert.Equal(t, "up", state.StillOrientation)

	// A bad field rejects the whole update.
	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/camera",
		`{"position":"front","flash":"strobe"}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	assert.Equal(t, capture.PositionRear, env.camera.Position())

	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/camera", `{"position":"front","toggle":true}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)

	env.sensor.HasFront = false
	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/camera", `{"position":"front"}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestHandleFocus(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/focus", FocusRequest{X: 25, Y: 50}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var got FocusResponse
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, geometry.NormalizedPoint{X: 0.25, Y: 0.75}, got.POI)
	assert.NotZero(t, got.EventID)
	assert.Equal(t, got.POI, env.sensor.FocusPoint())
	assert.Equal(t, got.POI, env.sensor.ExposurePoint())

	// Degenerate geometry focuses on the centre and is still logged.
	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/focus", FocusRequest{
		X: 25, Y: 50, Viewport: &geometry.Viewport{FillMode: geometry.FillModeAspectFit},
	}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.DecodeJSON(t, rec, &got)
	assert.True(t, got.Degenerate)
	assert.Equal(t, geometry.Center, got.POI)

	rec = env.do(testutil.NewTestRequest(http.MethodGet, "/api/focus/events?limit=10"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var events []db.FocusEvent
	testutil.DecodeJSON(t, rec, &events)
	require.Len(t, events, 2)
	assert.True(t, events[0].Degenerate)
	assert.Equal(t, geometry.ViewPoint{X: 25, Y: 50}, events[1].Tap)
	assert.Equal(t, fillView, events[1].Viewport)

	env.sensor.SetRunning(false)
	rec = env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/focus", FocusRequest{X: 1, Y: 1}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
}

func TestCaptureAndBrowse(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/capture", `{}`))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	var c db.Capture
	testutil.DecodeJSON(t, rec, &c)
	assert.Equal(t, db.KindPhoto, c.Kind)
	assert.Equal(t, "right", c.Orientation)
	assert.Equal(t, 8, c.Width)
	assert.Equal(t, 6, c.Height)
	assert.False(t, c.Cropped)

	rec = env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures?kind=photo"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var list []db.Capture
	testutil.DecodeJSON(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, c.CaptureID, list[0].CaptureID)

	rec = env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	t.Run("upright image", func(t *testing.T) {
		rec := env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID+"/image"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		img, err := png.Decode(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 6, img.Bounds().Dx())
		assert.Equal(t, 8, img.Bounds().Dy())
	})
	t.Run("stored image", func(t *testing.T) {
		rec := env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID+"/image?upright=0"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		img, err := png.Decode(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
	})
	t.Run("thumbnail", func(t *testing.T) {
		rec := env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID+"/image?thumb=4"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		img, err := png.Decode(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 3, img.Bounds().Dx())
		assert.Equal(t, 4, img.Bounds().Dy())
	})
	t.Run("file", func(t *testing.T) {
		rec := env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID+"/file"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), c.CaptureID+".png")
	})

	rec = env.do(testutil.NewTestRequest(http.MethodDelete, "/api/captures/"+c.CaptureID))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)
	rec = env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	rec = env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures?kind=sound"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestCaptureExactSeenImage(t *testing.T) {
	env := newTestEnv(t, true)

	// A narrow aspect-fill view shows only the middle of the sensor's short side.
	rec := env.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/capture", CaptureRequest{
		ExactSeenImage: true,
		Viewport:       &geometry.Viewport{FrameWidth: 20, FrameHeight: 40, FillMode: geometry.FillModeAspectFill},
	}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	var c db.Capture
	testutil.DecodeJSON(t, rec, &c)
	assert.True(t, c.Cropped)
	assert.Equal(t, 8, c.Width)
	assert.Less(t, c.Height, 6)
}

func TestRecording(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(testutil.NewTestRequest(http.MethodPost, "/api/record/stop"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusConflict)

	rec = env.do(testutil.NewTestRequest(http.MethodPost, "/api/record/start"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusAccepted)
	var started RecordingResponse
	testutil.DecodeJSON(t, rec, &started)
	assert.Equal(t, ".json", filepath.Ext(started.Path))

	rec = env.do(testutil.NewTestRequest(http.MethodPost, "/api/record/start"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusConflict)

	rec = env.do(testutil.NewTestRequest(http.MethodPost, "/api/record/stop"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	var c db.Capture
	testutil.DecodeJSON(t, rec, &c)
	assert.Equal(t, db.KindVideo, c.Kind)
	assert.Equal(t, "videos/"+filepath.Base(started.Path), c.Path)

	rec = env.do(testutil.NewTestRequest(http.MethodGet, "/api/captures/"+c.CaptureID+"/image"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestRecordingDisabled(t *testing.T) {
	env := newTestEnv(t, true)
	env.camera = capture.New(env.sensor, env.sensor, nil, env.library, capture.Options{})
	env.server = NewServer(env.camera, env.library, env.ledger, Options{Viewport: fillView})
	env.mux = env.server.ServeMux()

	rec := env.do(testutil.NewTestRequest(http.MethodPost, "/api/record/start"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusUnprocessableEntity)
}

func TestPOIGrid(t *testing.T) {
	in, out := POIGrid(fillView, defaultAperture, 5)
	assert.Len(t, in, 9)
	assert.Len(t, out, 16)
	for _, p := range in {
		assert.True(t, p.InRange())
	}
}

func TestHandlePOIGrid(t *testing.T) {
	env := newTestEnv(t, false)

	rec := httptest.NewRecorder()
	env.server.handlePOIGrid(rec, testutil.NewTestRequest(http.MethodGet, "/debug/poi-grid?mode=aspect_fit&w=300&h=400&steps=6"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Point-of-interest grid")

	for _, q := range []string{"mode=stretch", "steps=1", "w=wide"} {
		rec := httptest.NewRecorder()
		env.server.handlePOIGrid(rec, testutil.NewTestRequest(http.MethodGet, "/debug/poi-grid?"+q))
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	prev := monitoring.SetLogger(func(format string, args ...interface{}) {
		lines = append(lines, format)
	})
	defer monitoring.SetLogger(prev)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/version"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, lines, 1)
}
