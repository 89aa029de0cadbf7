package capture

import (
	"context"

	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/raster"
)

// Session is the running capture session.
type Session interface {
	Running() bool
	// CleanAperture is the pixel aperture of the active video input. It
	// changes with the active device and format.
	CleanAperture() geometry.Aperture
	HasCamera(p Position) bool
	// SetInput switches the active video input to the camera at p.
	SetInput(ctx context.Context, p Position) error
	// SetMirrored sets horizontal mirroring on the video connections.
	SetMirrored(mirrored bool)
	// ActiveDevice returns the device behind the current input, or nil.
	ActiveDevice() Device
}

// Device is a physical camera. Focus, exposure, flash and torch setters may
// only be called between LockForConfiguration and Unlock.
type Device interface {
	FocusPointSupported() bool
	ExposurePointSupported() bool
	LockForConfiguration() error
	Unlock()
	// SetFocusPoint sets the point of interest and starts a single autofocus.
	SetFocusPoint(p geometry.NormalizedPoint)
	// SetExposurePoint sets the point of interest and starts continuous auto-exposure.
	SetExposurePoint(p geometry.NormalizedPoint)
	HasFlash() bool
	SetFlash(m FlashMode)
	HasTorch() bool
	SetTorch(on bool)
}

// StillOutput captures stills. The returned raster is tagged with the
// orientation the sensor recorded it in.
type StillOutput interface {
	CaptureStill(ctx context.Context, o VideoOrientation) (*raster.Raster, error)
}

// Recorder writes movie files.
type Recorder interface {
	StartRecording(ctx context.Context, path string, o VideoOrientation) error
	StopRecording(ctx context.Context) (Video, error)
}

// Library persists finished captures and returns their ids.
type Library interface {
	SavePhoto(ctx context.Context, p *Photo) (string, error)
	SaveVideo(ctx context.Context, v *Video) (string, error)
}
