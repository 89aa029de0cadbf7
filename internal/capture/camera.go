package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/monitoring"
	"github.com/banshee-data/viewfinder/internal/raster"
	"github.com/banshee-data/viewfinder/internal/timeutil"
)

// Options configures a Camera.
type Options struct {
	Position Position
	Flash    FlashMode
	Mirror   MirrorMode

	VideoEnabled bool
	// UseDeviceOrientation takes the connection orientation from the motion
	// sensors instead of the interface.
	UseDeviceOrientation bool
	// FixOrientationAfterCapture bakes the orientation tag into every still.
	FixOrientationAfterCapture bool

	Clock timeutil.Clock
}

// CaptureRequest describes a single still.
type CaptureRequest struct {
	// Viewport is the viewfinder the user was looking at.
	Viewport geometry.Viewport
	// ExactSeenImage crops the still to the part of the sensor visible in
	// Viewport.
	ExactSeenImage bool
}

// Camera coordinates focus, stills, recording and camera switching. It is
// safe for concurrent use.
type Camera struct {
	session  Session
	output   StillOutput
	recorder Recorder
	library  Library
	clock    timeutil.Clock

	mu        sync.Mutex
	opts      Options
	position  Position
	flash     FlashMode
	mirror    MirrorMode
	devOrient DeviceOrientation
	uiOrient  InterfaceOrientation
	recording bool
}

// New returns a camera over the given collaborators. recorder may be nil
// when video is disabled and library may be nil to skip persistence.
func New(session Session, output StillOutput, recorder Recorder, library Library, opts Options) *Camera {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	c := &Camera{
		session:   session,
		output:    output,
		recorder:  recorder,
		library:   library,
		clock:     clock,
		opts:      opts,
		position:  opts.Position,
		flash:     opts.Flash,
		mirror:    opts.Mirror,
		devOrient: DevicePortrait,
		uiOrient:  InterfacePortrait,
	}
	session.SetMirrored(ShouldMirror(c.mirror, c.position))
	return c
}

// SetOrientation records the current device and interface orientations.
func (c *Camera) SetOrientation(dev DeviceOrientation, ui InterfaceOrientation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devOrient, c.uiOrient = dev, ui
}

// Orientation returns the recorded device and interface orientations.
func (c *Camera) Orientation() (DeviceOrientation, InterfaceOrientation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devOrient, c.uiOrient
}

// Position returns the active camera position.
func (c *Camera) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Flash returns the current flash mode.
func (c *Camera) Flash() FlashMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flash
}

// Recording reports whether a movie is being recorded.
func (c *Camera) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Camera) connectionOrientation() VideoOrientation {
	return ConnectionOrientation(c.opts.UseDeviceOrientation, c.devOrient, c.uiOrient)
}

// FocusAt focuses and meters on the sensor point under a viewfinder tap and
// returns the point handed to the device. The point is clamped to [0,1].
func (c *Camera) FocusAt(ctx context.Context, p geometry.ViewPoint, vp geometry.Viewport) (geometry.NormalizedPoint, error) {
	if err := ctx.Err(); err != nil {
		return geometry.Center, err
	}
	if !c.session.Running() {
		return geometry.Center, ErrNoSession
	}
	dev := c.session.ActiveDevice()
	if dev == nil {
		return geometry.Center, ErrNoSession
	}
	if !dev.FocusPointSupported() {
		return geometry.Center, ErrFocusNotSupported
	}

	ap := c.session.CleanAperture()
	if geometry.Degenerate(vp, ap) {
		monitoring.Logf("focus: degenerate geometry viewport=%+v aperture=%+v, using centre", vp, ap)
	}
	poi := geometry.MapToPointOfInterest(p, vp, ap).Clamp()

	if err := dev.LockForConfiguration(); err != nil {
		return poi, fmt.Errorf("capture: lock device for focus: %w", err)
	}
	defer dev.Unlock()
	dev.SetFocusPoint(poi)
	if dev.ExposurePointSupported() {
		dev.SetExposurePoint(poi)
	}
	return poi, nil
}

// Capture takes a still. When the camera is configured to fix orientation
// the still is normalized; a render target failure fails only this shot.
func (c *Camera) Capture(ctx context.Context, req CaptureRequest) (*Photo, error) {
	if !c.session.Running() {
		return nil, ErrNoSession
	}

	c.mu.Lock()
	orient := c.connectionOrientation()
	position := c.position
	normalize := c.opts.FixOrientationAfterCapture
	c.mu.Unlock()

	img, err := c.output.CaptureStill(ctx, orient)
	if err != nil {
		return nil, fmt.Errorf("capture: still: %w", err)
	}
	photo := &Photo{
		Image:      img,
		Position:   position,
		CapturedAt: c.clock.Now(),
	}

	if req.ExactSeenImage {
		rect := geometry.RectOfInterest(req.Viewport, c.session.CleanAperture())
		if rect != geometry.FullFrame {
			cropped, err := photo.Image.Crop(rect)
			if err != nil {
				return nil, fmt.Errorf("capture: crop to viewfinder: %w", err)
			}
			photo.Image = cropped
			photo.Cropped = true
		}
	}

	if normalize {
		upright, err := raster.Normalize(photo.Image)
		if err != nil {
			var rte *raster.RenderTargetError
			if errors.As(err, &rte) {
				monitoring.Logf("capture: dropping still, %v", rte)
			}
			return nil, fmt.Errorf("capture: fix orientation: %w", err)
		}
		photo.Image = upright
		photo.Normalized = true
	}

	if c.library != nil {
		id, err := c.library.SavePhoto(ctx, photo)
		if err != nil {
			return nil, fmt.Errorf("capture: save photo: %w", err)
		}
		photo.ID = id
	}
	return photo, nil
}

// StartRecording begins writing a movie to path. The torch is lit when the
// flash mode is FlashOn.
func (c *Camera) StartRecording(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opts.VideoEnabled || c.recorder == nil {
		return ErrVideoNotEnabled
	}
	if !c.session.Running() {
		return ErrNoSession
	}
	if c.recording {
		return ErrAlreadyRecording
	}

	if c.flash == FlashOn {
		c.setTorchLocked(true)
	}
	if err := c.recorder.StartRecording(ctx, path, c.connectionOrientation()); err != nil {
		c.setTorchLocked(false)
		return fmt.Errorf("capture: start recording: %w", err)
	}
	c.recording = true
	return nil
}

// StopRecording finishes the movie, turns the torch off and stores the
// result in the library. When the recorder fails to finish, the camera stays
// in the recording state and the call may be retried.
func (c *Camera) StopRecording(ctx context.Context) (*Video, error) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	v, err := c.recorder.StopRecording(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("capture: stop recording: %w", err)
	}
	c.recording = false
	c.setTorchLocked(false)
	c.mu.Unlock()

	if c.library != nil {
		id, err := c.library.SaveVideo(ctx, &v)
		if err != nil {
			return nil, fmt.Errorf("capture: save video: %w", err)
		}
		v.ID = id
	}
	return &v, nil
}

func (c *Camera) setTorchLocked(on bool) {
	dev := c.session.ActiveDevice()
	if dev == nil || !dev.HasTorch() {
		return
	}
	if err := dev.LockForConfiguration(); err != nil {
		monitoring.Logf("capture: torch: %v", err)
		return
	}
	dev.SetTorch(on)
	dev.Unlock()
}

// SetPosition switches to the camera at p and reapplies mirroring.
func (c *Camera) SetPosition(ctx context.Context, p Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.HasCamera(p) {
		return ErrCameraUnavailable
	}
	if err := c.session.SetInput(ctx, p); err != nil {
		return fmt.Errorf("capture: switch to %s camera: %w", p, err)
	}
	c.position = p
	c.session.SetMirrored(ShouldMirror(c.mirror, p))
	return nil
}

// TogglePosition switches between the rear and front cameras.
func (c *Camera) TogglePosition(ctx context.Context) (Position, error) {
	next := PositionFront
	if c.Position() == PositionFront {
		next = PositionRear
	}
	if err := c.SetPosition(ctx, next); err != nil {
		return c.Position(), err
	}
	return next, nil
}

// SetMirror changes the mirror mode and applies it to the session.
func (c *Camera) SetMirror(m MirrorMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = m
	c.session.SetMirrored(ShouldMirror(m, c.position))
}

// UpdateFlashMode applies m to the active device. It reports false when the
// device has no flash. During a recording the torch follows the new mode.
func (c *Camera) UpdateFlashMode(m FlashMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	dev := c.session.ActiveDevice()
	if dev == nil || !dev.HasFlash() {
		return false
	}
	if err := dev.LockForConfiguration(); err != nil {
		monitoring.Logf("capture: flash: %v", err)
		return false
	}
	dev.SetFlash(m)
	dev.Unlock()
	c.flash = m

	if c.recording {
		c.setTorchLocked(m == FlashOn)
	}
	return true
}

// Mirror returns the current mirror mode.
func (c *Camera) Mirror() MirrorMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mirror
}

// CleanAperture returns the active input's clean aperture.
func (c *Camera) CleanAperture() geometry.Aperture {
	return c.session.CleanAperture()
}

// State is a snapshot of the camera's user-facing settings.
type State struct {
	Position         string `json:"position"`
	Flash            string `json:"flash"`
	Mirror           string `json:"mirror"`
	Mirrored         bool   `json:"mirrored"`
	Recording        bool   `json:"recording"`
	VideoEnabled     bool   `json:"video_enabled"`
	VideoOrientation string `json:"video_orientation"`
	StillOrientation string `json:"still_orientation"`
}

// State returns the current settings.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	mirrored := ShouldMirror(c.mirror, c.position)
	vo := c.connectionOrientation()
	return State{
		Position:         c.position.String(),
		Flash:            c.flash.String(),
		Mirror:           c.mirror.String(),
		Mirrored:         mirrored,
		Recording:        c.recording,
		VideoEnabled:     c.opts.VideoEnabled && c.recorder != nil,
		VideoOrientation: vo.String(),
		StillOrientation: StillOrientation(vo, mirrored).String(),
	}
}
