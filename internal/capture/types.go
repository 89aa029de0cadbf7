// Package capture drives a camera through the collaborator interfaces a
// platform supplies: session, device, still output, movie recorder and
// media library.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/viewfinder/internal/raster"
)

var (
	// ErrNoSession is returned when the capture session is not running.
	ErrNoSession = errors.New("capture: session not running")
	// ErrVideoNotEnabled is returned by recording calls on a photo-only camera.
	ErrVideoNotEnabled = errors.New("capture: video recording not enabled")
	// ErrFocusNotSupported is returned when the active device cannot focus on a point.
	ErrFocusNotSupported = errors.New("capture: point of interest focus not supported")
	// ErrCameraUnavailable is returned when switching to a position with no camera.
	ErrCameraUnavailable = errors.New("capture: no camera at requested position")
	// ErrAlreadyRecording is returned by StartRecording while a recording is active.
	ErrAlreadyRecording = errors.New("capture: already recording")
	// ErrNotRecording is returned by StopRecording when nothing is being recorded.
	ErrNotRecording = errors.New("capture: not recording")
)

// Position selects the physical camera.
type Position int

const (
	PositionRear Position = iota
	PositionFront
)

func (p Position) String() string {
	if p == PositionFront {
		return "front"
	}
	return "rear"
}

// ParsePosition accepts "rear"/"back" and "front".
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rear", "back":
		return PositionRear, nil
	case "front":
		return PositionFront, nil
	}
	return PositionRear, fmt.Errorf("unknown camera position %q", s)
}

// FlashMode is the requested flash behaviour for stills. While recording,
// FlashOn lights the torch instead.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashOn
	FlashAuto
)

func (f FlashMode) String() string {
	switch f {
	case FlashOn:
		return "on"
	case FlashAuto:
		return "auto"
	}
	return "off"
}

// ParseFlashMode accepts "off", "on" and "auto".
func ParseFlashMode(s string) (FlashMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return FlashOff, nil
	case "on":
		return FlashOn, nil
	case "auto":
		return FlashAuto, nil
	}
	return FlashOff, fmt.Errorf("unknown flash mode %q", s)
}

// MirrorMode controls horizontal mirroring of the video connection.
type MirrorMode int

const (
	MirrorOff MirrorMode = iota
	MirrorOn
	// MirrorAuto mirrors the front camera only.
	MirrorAuto
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorOn:
		return "on"
	case MirrorAuto:
		return "auto"
	}
	return "off"
}

// ParseMirrorMode accepts "off", "on" and "auto".
func ParseMirrorMode(s string) (MirrorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return MirrorOff, nil
	case "on":
		return MirrorOn, nil
	case "auto":
		return MirrorAuto, nil
	}
	return MirrorOff, fmt.Errorf("unknown mirror mode %q", s)
}

// ShouldMirror resolves a mirror mode for the camera at p.
func ShouldMirror(m MirrorMode, p Position) bool {
	switch m {
	case MirrorOn:
		return true
	case MirrorAuto:
		return p == PositionFront
	}
	return false
}

// Photo is a still that has been through the capture pipeline.
type Photo struct {
	ID       string
	Image    *raster.Raster
	Position Position
	// Normalized is set when the orientation was baked into the pixels.
	Normalized bool
	// Cropped is set when the still was cut down to the viewfinder's view.
	Cropped    bool
	CapturedAt time.Time
}

// Video describes a finished movie file.
type Video struct {
	ID          string
	Path        string
	Width       int
	Height      int
	Orientation raster.Orientation
	Duration    time.Duration
	RecordedAt  time.Time
}
