package capture

import (
	"fmt"
	"strings"

	"github.com/banshee-data/viewfinder/internal/raster"
)

// DeviceOrientation is the physical attitude reported by the motion sensors.
type DeviceOrientation int

const (
	DeviceUnknown DeviceOrientation = iota
	DevicePortrait
	DevicePortraitUpsideDown
	DeviceLandscapeLeft
	DeviceLandscapeRight
	DeviceFaceUp
	DeviceFaceDown
)

// InterfaceOrientation is the orientation the user interface is drawn in.
type InterfaceOrientation int

const (
	InterfaceUnknown InterfaceOrientation = iota
	InterfacePortrait
	InterfacePortraitUpsideDown
	InterfaceLandscapeLeft
	InterfaceLandscapeRight
)

var deviceNames = map[string]DeviceOrientation{
	"unknown":              DeviceUnknown,
	"portrait":             DevicePortrait,
	"portrait_upside_down": DevicePortraitUpsideDown,
	"landscape_left":       DeviceLandscapeLeft,
	"landscape_right":      DeviceLandscapeRight,
	"face_up":              DeviceFaceUp,
	"face_down":            DeviceFaceDown,
}

// ParseDeviceOrientation accepts snake-case names such as "landscape_left".
func ParseDeviceOrientation(s string) (DeviceOrientation, error) {
	if d, ok := deviceNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return DeviceUnknown, fmt.Errorf("unknown device orientation %q", s)
}

var interfaceNames = map[string]InterfaceOrientation{
	"unknown":              InterfaceUnknown,
	"portrait":             InterfacePortrait,
	"portrait_upside_down": InterfacePortraitUpsideDown,
	"landscape_left":       InterfaceLandscapeLeft,
	"landscape_right":      InterfaceLandscapeRight,
}

// ParseInterfaceOrientation accepts snake-case names such as "portrait".
func ParseInterfaceOrientation(s string) (InterfaceOrientation, error) {
	if o, ok := interfaceNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return o, nil
	}
	return InterfaceUnknown, fmt.Errorf("unknown interface orientation %q", s)
}

// VideoOrientation is the orientation requested on a capture connection.
type VideoOrientation int

const (
	VideoPortrait VideoOrientation = iota
	VideoPortraitUpsideDown
	VideoLandscapeRight
	VideoLandscapeLeft
)

func (v VideoOrientation) String() string {
	switch v {
	case VideoPortraitUpsideDown:
		return "portrait_upside_down"
	case VideoLandscapeRight:
		return "landscape_right"
	case VideoLandscapeLeft:
		return "landscape_left"
	}
	return "portrait"
}

// ConnectionOrientation picks the connection orientation for a capture.
// The caller supplies both the device and interface orientations.
//
// Device landscape is named after the side the home button sits on while
// video landscape is named after the top edge, so the two landscape values
// cross over. Interface orientation maps straight through. Unknown, face up
// and face down fall back to portrait.
func ConnectionOrientation(useDevice bool, dev DeviceOrientation, ui InterfaceOrientation) VideoOrientation {
	if useDevice {
		switch dev {
		case DeviceLandscapeLeft:
			return VideoLandscapeRight
		case DeviceLandscapeRight:
			return VideoLandscapeLeft
		case DevicePortraitUpsideDown:
			return VideoPortraitUpsideDown
		}
		return VideoPortrait
	}

	switch ui {
	case InterfaceLandscapeLeft:
		return VideoLandscapeLeft
	case InterfaceLandscapeRight:
		return VideoLandscapeRight
	case InterfacePortraitUpsideDown:
		return VideoPortraitUpsideDown
	}
	return VideoPortrait
}

// StillOrientation is the orientation tag a landscape sensor attaches to a
// still captured with connection orientation v. Mirrored connections flip
// the displayed image horizontally.
func StillOrientation(v VideoOrientation, mirrored bool) raster.Orientation {
	var o raster.Orientation
	switch v {
	case VideoPortraitUpsideDown:
		o = raster.OrientationLeft
	case VideoLandscapeRight:
		o = raster.OrientationUp
	case VideoLandscapeLeft:
		o = raster.OrientationDown
	default:
		o = raster.OrientationRight
	}
	if !mirrored {
		return o
	}
	switch o {
	case raster.OrientationRight:
		return raster.OrientationLeftMirrored
	case raster.OrientationLeft:
		return raster.OrientationRightMirrored
	case raster.OrientationDown:
		return raster.OrientationDownMirrored
	}
	return raster.OrientationUpMirrored
}
