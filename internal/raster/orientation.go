package raster

import (
	"fmt"
	"strconv"
	"strings"
)

// Orientation records how stored pixels must be transformed for display.
// The order matches the capture platform's image orientation enum.
type Orientation int

const (
	OrientationUp Orientation = iota
	OrientationDown
	OrientationLeft
	OrientationRight
	OrientationUpMirrored
	OrientationDownMirrored
	OrientationLeftMirrored
	OrientationRightMirrored
)

var orientationNames = [...]string{
	OrientationUp:            "up",
	OrientationDown:          "down",
	OrientationLeft:          "left",
	OrientationRight:         "right",
	OrientationUpMirrored:    "up_mirrored",
	OrientationDownMirrored:  "down_mirrored",
	OrientationLeftMirrored:  "left_mirrored",
	OrientationRightMirrored: "right_mirrored",
}

// EXIF orientation tag values, indexed by Orientation.
var exifValues = [...]int{
	OrientationUp:            1,
	OrientationUpMirrored:    2,
	OrientationDown:          3,
	OrientationDownMirrored:  4,
	OrientationLeftMirrored:  5,
	OrientationRight:         6,
	OrientationRightMirrored: 7,
	OrientationLeft:          8,
}

// Valid reports whether o is one of the eight defined orientations.
func (o Orientation) Valid() bool {
	return o >= OrientationUp && o <= OrientationRightMirrored
}

// Mirrored reports whether o includes a horizontal flip.
func (o Orientation) Mirrored() bool {
	return o >= OrientationUpMirrored && o <= OrientationRightMirrored
}

// Base returns the rotation-only orientation underlying o.
func (o Orientation) Base() Orientation {
	if o.Mirrored() {
		return o - OrientationUpMirrored
	}
	return o
}

// QuarterTurn reports whether normalizing o swaps width and height.
func (o Orientation) QuarterTurn() bool {
	b := o.Base()
	return b == OrientationLeft || b == OrientationRight
}

func (o Orientation) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
	return orientationNames[o]
}

// EXIF returns the TIFF/EXIF orientation tag value (1..8) for o.
func (o Orientation) EXIF() int {
	if !o.Valid() {
		return 0
	}
	return exifValues[o]
}

// OrientationFromEXIF converts an EXIF orientation tag value. Values outside
// 1..8 are reported as not ok and map to Up.
func OrientationFromEXIF(v int) (Orientation, bool) {
	for o, e := range exifValues {
		if e == v {
			return Orientation(o), true
		}
	}
	return OrientationUp, false
}

// ParseOrientation accepts the String() spelling, a camel-case spelling such
// as "RightMirrored", or an EXIF tag number.
func ParseOrientation(s string) (Orientation, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for o, name := range orientationNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return Orientation(o), nil
		}
	}
	if v, err := strconv.Atoi(norm); err == nil {
		if o, ok := OrientationFromEXIF(v); ok {
			return o, nil
		}
	}
	return OrientationUp, fmt.Errorf("unknown orientation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid orientation %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
