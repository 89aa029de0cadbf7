package geometry

import (
	"fmt"
	"math"
	"strings"
)

// FillMode describes how the viewfinder renders a camera feed whose
// proportions differ from its own frame.
type FillMode int

const (
	// FillModeFill stretches the feed to the frame without preserving aspect.
	FillModeFill FillMode = iota
	// FillModeAspectFit letterboxes or pillarboxes the feed inside the frame.
	FillModeAspectFit
	// FillModeAspectFill scales the feed to cover the frame and crops the overflow.
	FillModeAspectFill
)

// String returns the config/JSON spelling of the fill mode.
func (m FillMode) String() string {
	switch m {
	case FillModeFill:
		return "fill"
	case FillModeAspectFit:
		return "aspect_fit"
	case FillModeAspectFill:
		return "aspect_fill"
	default:
		return fmt.Sprintf("FillMode(%d)", int(m))
	}
}

// ParseFillMode accepts the String() spelling, case-insensitively. The
// platform gravity names ("resize", "resize_aspect", "resize_aspect_fill")
// are accepted as aliases.
func ParseFillMode(s string) (FillMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fill", "resize":
		return FillModeFill, nil
	case "aspect_fit", "resize_aspect":
		return FillModeAspectFit, nil
	case "aspect_fill", "resize_aspect_fill":
		return FillModeAspectFill, nil
	}
	return 0, fmt.Errorf("unknown fill mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m FillMode) MarshalText() ([]byte, error) {
	switch m {
	case FillModeFill, FillModeAspectFit, FillModeAspectFill:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("invalid fill mode %d", int(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FillMode) UnmarshalText(b []byte) error {
	v, err := ParseFillMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Viewport is the on-screen viewfinder element. Callers build a fresh value
// for every mapping call.
type Viewport struct {
	FrameWidth  float64  `json:"frame_width"`
	FrameHeight float64  `json:"frame_height"`
	FillMode    FillMode `json:"fill_mode"`
}

// Aperture is the clean pixel aperture of the active video input port.
// It changes whenever the active device or format changes, so it is always
// passed in and never cached here.
type Aperture struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewPoint is a gesture location in view-local units, origin top-left,
// y increasing downward.
type ViewPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizedPoint is a sensor-space point of interest. Values produced by
// MapToPointOfInterest may fall outside [0,1]; see Clamp.
type NormalizedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is the safe default point of interest.
var Center = NormalizedPoint{X: 0.5, Y: 0.5}

// Clamp limits both coordinates to [0,1]. Hardware focus and exposure
// setters reject out-of-range values, so this is applied where the point is
// handed to the device, not inside the mapper.
func (p NormalizedPoint) Clamp() NormalizedPoint {
	return NormalizedPoint{X: clamp01(p.X), Y: clamp01(p.Y)}
}

// InRange reports whether both coordinates lie in [0,1].
func (p NormalizedPoint) InRange() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// NormalizedRect is a sensor-space rectangle with origin and extent in [0,1].
type NormalizedRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullFrame covers the whole sensor.
var FullFrame = NormalizedRect{X: 0, Y: 0, Width: 1, Height: 1}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Max(0, math.Min(1, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
