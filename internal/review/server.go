// Package review serves the capture review API: browsing stored photos and
// videos, mapping viewfinder taps, normalizing uploads and driving the
// camera.
package review

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/httputil"
	"github.com/banshee-data/viewfinder/internal/media"
	"github.com/banshee-data/viewfinder/internal/monitoring"
	"github.com/banshee-data/viewfinder/internal/version"
)

// FocusLog stores mapped taps.
type FocusLog interface {
	RecordFocus(ctx context.Context, e *db.FocusEvent) error
	RecentFocusEvents(ctx context.Context, limit int) ([]db.FocusEvent, error)
}

// Options configures a Server.
type Options struct {
	// Viewport is used when a request does not describe its own.
	Viewport geometry.Viewport
	// JPEGQuality applies to fmt=jpeg downloads.
	JPEGQuality int
	// ThumbnailMax caps the thumb query parameter.
	ThumbnailMax int
	// VideoExt is the extension of files the recorder writes.
	VideoExt string
}

// Server is the review HTTP API. camera may be nil, in which case the
// camera routes answer 503.
type Server struct {
	camera  *capture.Camera
	library *media.Library
	focus   FocusLog
	opts    Options
}

// NewServer returns a review server.
func NewServer(camera *capture.Camera, library *media.Library, focus FocusLog, opts Options) *Server {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 90
	}
	if opts.ThumbnailMax <= 0 {
		opts.ThumbnailMax = 320
	}
	if opts.VideoExt == "" {
		opts.VideoExt = ".mov"
	}
	return &Server{camera: camera, library: library, focus: focus, opts: opts}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.Attach(mux)
	return mux
}

// Attach registers the API routes and the poi-grid debug page on mux.
func (s *Server) Attach(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/version", s.handleVersion)

	mux.HandleFunc("GET /api/captures", s.handleListCaptures)
	mux.HandleFunc("GET /api/captures/{id}", s.handleGetCapture)
	mux.HandleFunc("DELETE /api/captures/{id}", s.handleDeleteCapture)
	mux.HandleFunc("GET /api/captures/{id}/image", s.handleCaptureImage)
	mux.HandleFunc("GET /api/captures/{id}/file", s.handleCaptureFile)

	mux.HandleFunc("POST /api/poi", s.handlePOI)
	mux.HandleFunc("POST /api/normalize", s.handleNormalize)

	mux.HandleFunc("GET /api/camera", s.handleCameraState)
	mux.HandleFunc("POST /api/camera", s.handleCameraUpdate)
	mux.HandleFunc("POST /api/focus", s.handleFocus)
	mux.HandleFunc("GET /api/focus/events", s.handleFocusEvents)
	mux.HandleFunc("POST /api/capture", s.handleCapture)
	mux.HandleFunc("POST /api/record/start", s.handleRecordStart)
	mux.HandleFunc("POST /api/record/stop", s.handleRecordStop)

	debug := tsweb.Debugger(mux)
	debug.Handle("poi-grid", "Point-of-interest mapping grid", http.HandlerFunc(s.handlePOIGrid))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Current())
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	logf := monitoring.Prefixed("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf("%d %s %s %.2fms", lrw.statusCode, r.Method, r.URL.RequestURI(),
			float64(time.Since(start).Microseconds())/1e3)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// writeLookupError maps ledger and library errors onto responses.
func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrCaptureNotFound):
		httputil.NotFound(w, "capture not found")
	case errors.Is(err, media.ErrNotPhoto):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

// queryInt parses an optional integer parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return n, nil
}
