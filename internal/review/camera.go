package review

import (
	"errors"
	"net/http"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/httputil"
	"github.com/banshee-data/viewfinder/internal/monitoring"
	"github.com/banshee-data/viewfinder/internal/raster"
)

// CameraUpdate is the body of POST /api/camera. Absent fields are left
// unchanged; Toggle switches between the front and rear cameras.
type CameraUpdate struct {
	Position             *string `json:"position,omitempty"`
	Toggle               bool    `json:"toggle,omitempty"`
	Flash                *string `json:"flash,omitempty"`
	Mirror               *string `json:"mirror,omitempty"`
	DeviceOrientation    *string `json:"device_orientation,omitempty"`
	InterfaceOrientation *string `json:"interface_orientation,omitempty"`
}

// FocusRequest is the body of POST /api/focus.
type FocusRequest struct {
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Viewport *geometry.Viewport `json:"viewport,omitempty"`
}

// FocusResponse reports the point handed to the device.
type FocusResponse struct {
	POI        geometry.NormalizedPoint `json:"poi"`
	Degenerate bool                     `json:"degenerate"`
	EventID    int64                    `json:"event_id,omitempty"`
}

// CaptureRequest is the body of POST /api/capture.
type CaptureRequest struct {
	ExactSeenImage bool               `json:"exact_seen_image"`
	Viewport       *geometry.Viewport `json:"viewport,omitempty"`
}

// RecordingResponse is returned by POST /api/record/start.
type RecordingResponse struct {
	Path string `json:"path"`
}

// requireCamera writes 503 and returns false when no camera is attached.
func (s *Server) requireCamera(w http.ResponseWriter) bool {
	if s.camera == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no camera attached")
		return false
	}
	return true
}

func (s *Server) viewport(vp *geometry.Viewport) geometry.Viewport {
	if vp != nil {
		return *vp
	}
	return s.opts.Viewport
}

func (s *Server) handleCameraState(w http.ResponseWriter, r *http.Request) {
	if !s.requireCamera(w) {
		return
	}
	httputil.WriteJSONOK(w, s.camera.State())
}

func (s *Server) handleCameraUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.requireCamera(w) {
		return
	}
	var req CameraUpdate
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Toggle && req.Position != nil {
		httputil.BadRequest(w, "position and toggle are mutually exclusive")
		return
	}

	// Parse everything before touching the camera so a bad field changes nothing.
	var (
		pos    capture.Position
		flash  capture.FlashMode
		mirror capture.MirrorMode
		err    error
	)
	dev, ui := s.camera.Orientation()
	orientation := req.DeviceOrientation != nil || req.InterfaceOrientation != nil
	if req.Position != nil {
		if pos, err = capture.ParsePosition(*req.Position); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	if req.Flash != nil {
		if flash, err = capture.ParseFlashMode(*req.Flash); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	if req.Mirror != nil {
		if mirror, err = capture.ParseMirrorMode(*req.Mirror); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	if req.DeviceOrientation != nil {
		if dev, err = capture.ParseDeviceOrientation(*req.DeviceOrientation); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	if req.InterfaceOrientation != nil {
		if ui, err = capture.ParseInterfaceOrientation(*req.InterfaceOrientation); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	ctx := r.Context()
	switch {
	case req.Toggle:
		_, err = s.camera.TogglePosition(ctx)
	case req.Position != nil:
		err = s.camera.SetPosition(ctx, pos)
	}
	if err != nil {
		writeCameraError(w, err)
		return
	}
	if req.Mirror != nil {
		s.camera.SetMirror(mirror)
	}
	if req.Flash != nil && !s.camera.UpdateFlashMode(flash) {
		httputil.Conflict(w, "active camera has no flash")
		return
	}
	if orientation {
		s.camera.SetOrientation(dev, ui)
	}
	httputil.WriteJSONOK(w, s.camera.State())
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	if !s.requireCamera(w) {
		return
	}
	var req FocusRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	vp := s.viewport(req.Viewport)
	tap := geometry.ViewPoint{X: req.X, Y: req.Y}

	poi, err := s.camera.FocusAt(r.Context(), tap, vp)
	if err != nil {
		writeCameraError(w, err)
		return
	}
	resp := FocusResponse{POI: poi, Degenerate: geometry.Degenerate(vp, s.camera.CleanAperture())}

	if s.focus != nil {
		e := &db.FocusEvent{Tap: tap, Viewport: vp, POI: poi, Degenerate: resp.Degenerate}
		if err := s.focus.RecordFocus(r.Context(), e); err != nil {
			monitoring.Logf("review: %v", err)
		} else {
			resp.EventID = e.EventID
		}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleFocusEvents(w http.ResponseWriter, r *http.Request) {
	if s.focus == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "focus log not configured")
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	events, err := s.focus.RecentFocusEvents(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, events)
}

// handleCapture takes a still and returns its ledger entry.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if !s.requireCamera(w) {
		return
	}
	var req CaptureRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	photo, err := s.camera.Capture(r.Context(), capture.CaptureRequest{
		Viewport:       s.viewport(req.Viewport),
		ExactSeenImage: req.ExactSeenImage,
	})
	if err != nil {
		writeCameraError(w, err)
		return
	}
	c, err := s.library.Get(r.Context(), photo.ID)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if !s.requireCamera(w) {
		return
	}
	path := s.library.NewVideoPath(s.opts.VideoExt)
	if err := s.camera.StartRecording(r.Context(), path); err != nil {
		writeCameraError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, RecordingResponse{Path: path})
}

func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if !s.requireCamera(w) {
		return
	}
	video, err := s.camera.StopRecording(r.Context())
	if err != nil {
		writeCameraError(w, err)
		return
	}
	c, err := s.library.Get(r.Context(), video.ID)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// writeCameraError maps capture errors onto responses.
func writeCameraError(w http.ResponseWriter, err error) {
	var rte *raster.RenderTargetError
	switch {
	case errors.Is(err, capture.ErrNoSession):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, capture.ErrFocusNotSupported),
		errors.Is(err, capture.ErrVideoNotEnabled):
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, capture.ErrCameraUnavailable):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, capture.ErrAlreadyRecording),
		errors.Is(err, capture.ErrNotRecording):
		httputil.Conflict(w, err.Error())
	case errors.As(err, &rte):
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}
