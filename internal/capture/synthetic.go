package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/viewfinder/internal/fsutil"
	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/raster"
	"github.com/banshee-data/viewfinder/internal/timeutil"
)

// SyntheticFrameRate is the nominal frame rate of synthetic recordings.
const SyntheticFrameRate = 30

// Synthetic is a software camera for dev mode and tests. It implements
// Session, Device, StillOutput and Recorder. Stills are a landscape test
// pattern with a marker in the top-left corner of the sensor so the effect
// of the orientation tag is visible.
type Synthetic struct {
	// Sensor extent in pixels; landscape.
	Width, Height int
	Format        raster.PixelFormat
	HasFront      bool
	// FS receives recording manifests. Nil skips writing them.
	FS    fsutil.FileSystem
	Clock timeutil.Clock

	mu       sync.Mutex
	running  bool
	position Position
	mirrored bool
	locked   bool
	focus    geometry.NormalizedPoint
	exposure geometry.NormalizedPoint
	flash    FlashMode
	torch    bool
	frame    uint64

	recPath   string
	recStart  time.Time
	recOrient VideoOrientation
}

// NewSynthetic returns a running synthetic camera with front and rear
// cameras and an RGBA sensor.
func NewSynthetic(width, height int) *Synthetic {
	return &Synthetic{
		Width:    width,
		Height:   height,
		Format:   raster.FormatRGBA8,
		HasFront: true,
		Clock:    timeutil.RealClock{},
		running:  true,
		focus:    geometry.Center,
		exposure: geometry.Center,
	}
}

// SetRunning starts or stops the session.
func (s *Synthetic) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

func (s *Synthetic) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Synthetic) CleanAperture() geometry.Aperture {
	return geometry.Aperture{Width: float64(s.Width), Height: float64(s.Height)}
}

func (s *Synthetic) HasCamera(p Position) bool {
	return p == PositionRear || s.HasFront
}

func (s *Synthetic) SetInput(ctx context.Context, p Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.HasCamera(p) {
		return ErrCameraUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
	return nil
}

func (s *Synthetic) SetMirrored(m bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirrored = m
}

// Mirrored reports the connection mirroring state.
func (s *Synthetic) Mirrored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrored
}

func (s *Synthetic) ActiveDevice() Device { return s }

func (s *Synthetic) FocusPointSupported() bool    { return true }
func (s *Synthetic) ExposurePointSupported() bool { return true }

func (s *Synthetic) LockForConfiguration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return errors.New("synthetic: device already locked")
	}
	s.locked = true
	return nil
}

func (s *Synthetic) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

func (s *Synthetic) SetFocusPoint(p geometry.NormalizedPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = p
}

func (s *Synthetic) SetExposurePoint(p geometry.NormalizedPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exposure = p
}

// FocusPoint returns the last point of interest set for focus.
func (s *Synthetic) FocusPoint() geometry.NormalizedPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// ExposurePoint returns the last point of interest set for exposure.
func (s *Synthetic) ExposurePoint() geometry.NormalizedPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure
}

func (s *Synthetic) HasFlash() bool { return true }

func (s *Synthetic) SetFlash(m FlashMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = m
}

func (s *Synthetic) HasTorch() bool { return true }

func (s *Synthetic) SetTorch(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.torch = on
}

// Torch reports whether the torch is lit.
func (s *Synthetic) Torch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.torch
}

// CaptureStill renders the next test-pattern frame.
func (s *Synthetic) CaptureStill(ctx context.Context, o VideoOrientation) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.frame++
	frame := s.frame
	mirrored := s.mirrored
	focus := s.focus
	s.mu.Unlock()

	r, err := raster.New(s.Format, s.Width, s.Height, StillOrientation(o, mirrored))
	if err != nil {
		return nil, err
	}
	paintPattern(r, frame, focus)
	return r, nil
}

// paintPattern draws a diagonal gradient, a solid marker over the top-left
// eighth of the sensor and a cross at the focus point.
func paintPattern(r *raster.Raster, frame uint64, focus geometry.NormalizedPoint) {
	w, h := r.Width(), r.Height()
	bpp := r.Format().BytesPerPixel()
	pix, stride := r.Pix(), r.Stride()
	fx, fy := int(focus.X*float64(w-1)), int(focus.Y*float64(h-1))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c [4]byte
			switch {
			case x < w/4 && y < h/4:
				c = [4]byte{0xff, 0x20, 0x20, 0xff}
			case x == fx || y == fy:
				c = [4]byte{0xff, 0xff, 0xff, 0xff}
			default:
				c = [4]byte{uint8(x * 255 / w), uint8(y * 255 / h), uint8(frame * 16), 0xff}
			}
			writePixel(pix[y*stride+x*bpp:y*stride+(x+1)*bpp], r.Format(), c)
		}
	}
}

func writePixel(dst []byte, f raster.PixelFormat, c [4]byte) {
	luma := uint8((299*int(c[0]) + 587*int(c[1]) + 114*int(c[2])) / 1000)
	switch f {
	case raster.FormatGray8:
		dst[0] = luma
	case raster.FormatGray16:
		dst[0], dst[1] = luma, luma
	case raster.FormatRGBA8:
		copy(dst, c[:])
	case raster.FormatRGBA16:
		for i := 0; i < 4; i++ {
			dst[2*i], dst[2*i+1] = c[i], c[i]
		}
	case raster.FormatCMYK8:
		k := 0xff - max(c[0], c[1], c[2])
		dst[0], dst[1], dst[2], dst[3] = 0xff-c[0]-k, 0xff-c[1]-k, 0xff-c[2]-k, k
	}
}

type syntheticManifest struct {
	Path        string  `json:"path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Orientation string  `json:"orientation"`
	Frames      int     `json:"frames"`
	DurationSec float64 `json:"duration_sec"`
}

func (s *Synthetic) StartRecording(ctx context.Context, path string, o VideoOrientation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recPath != "" {
		return ErrAlreadyRecording
	}
	s.recPath = path
	s.recStart = s.Clock.Now()
	s.recOrient = o
	return nil
}

// StopRecording writes a JSON manifest describing the recording to the
// movie path.
func (s *Synthetic) StopRecording(ctx context.Context) (Video, error) {
	s.mu.Lock()
	path, start, orient, mirrored := s.recPath, s.recStart, s.recOrient, s.mirrored
	s.recPath = ""
	s.mu.Unlock()

	if path == "" {
		return Video{}, ErrNotRecording
	}
	v := Video{
		Path:        path,
		Width:       s.Width,
		Height:      s.Height,
		Orientation: StillOrientation(orient, mirrored),
		Duration:    s.Clock.Since(start),
		RecordedAt:  start,
	}
	if s.FS == nil {
		return v, nil
	}

	data, err := json.Marshal(syntheticManifest{
		Path:        path,
		Width:       v.Width,
		Height:      v.Height,
		Orientation: v.Orientation.String(),
		Frames:      int(v.Duration.Seconds() * SyntheticFrameRate),
		DurationSec: v.Duration.Seconds(),
	})
	if err != nil {
		return v, err
	}
	if err := fsutil.WriteFileAtomic(s.FS, path, data, 0o644); err != nil {
		s.mu.Lock()
		if s.recPath == "" {
			s.recPath = path
		}
		s.mu.Unlock()
		return v, fmt.Errorf("synthetic: write recording: %w", err)
	}
	return v, nil
}
