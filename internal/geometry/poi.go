// Package geometry maps viewfinder gestures into camera sensor space.
//
// The sensor's native orientation is landscape while the viewfinder is held
// in portrait, so every mapping swaps axes: view y drives sensor x, and view x
// drives sensor y inverted. All functions are pure and safe for concurrent use.
package geometry

import "math"

// Degenerate reports whether vp and ap cannot support a mapping without a
// division by zero. The aperture only matters for the aspect-preserving
// fill modes.
func Degenerate(vp Viewport, ap Aperture) bool {
	if !finite(vp.FrameWidth, vp.FrameHeight) || vp.FrameWidth <= 0 || vp.FrameHeight <= 0 {
		return true
	}
	if vp.FillMode == FillModeFill {
		return false
	}
	return !finite(ap.Width, ap.Height) || ap.Width <= 0 || ap.Height <= 0
}

// MapToPointOfInterest converts a tap in viewfinder coordinates into the
// normalized sensor point consumed by autofocus and auto-exposure.
//
// The function is total. Degenerate geometry and taps inside the black bars
// of an aspect-fit viewfinder return Center. The result is not clamped.
func MapToPointOfInterest(p ViewPoint, vp Viewport, ap Aperture) NormalizedPoint {
	if Degenerate(vp, ap) || !finite(p.X, p.Y) {
		return Center
	}

	fw, fh := vp.FrameWidth, vp.FrameHeight

	if vp.FillMode == FillModeFill {
		return NormalizedPoint{X: p.Y / fh, Y: 1 - p.X/fw}
	}

	apertureRatio := ap.Height / ap.Width
	viewRatio := fw / fh

	switch vp.FillMode {
	case FillModeAspectFit:
		return mapAspectFit(p, fw, fh, apertureRatio, viewRatio)
	case FillModeAspectFill:
		return mapAspectFill(p, fw, fh, ap, apertureRatio, viewRatio)
	}
	return Center
}

func mapAspectFit(p ViewPoint, fw, fh, apertureRatio, viewRatio float64) NormalizedPoint {
	poi := Center
	if viewRatio > apertureRatio {
		// Pillarboxed: bars left and right.
		x2 := fh * apertureRatio
		blackBar := (fw - x2) / 2
		if p.X >= blackBar && p.X <= blackBar+x2 {
			poi.X = p.Y / fh
			poi.Y = 1 - (p.X-blackBar)/x2
		}
		return poi
	}

	// Letterboxed: bars top and bottom.
	y2 := fw / apertureRatio
	blackBar := (fh - y2) / 2
	if p.Y >= blackBar && p.Y <= blackBar+y2 {
		poi.X = (p.Y - blackBar) / y2
		poi.Y = 1 - p.X/fw
	}
	return poi
}

func mapAspectFill(p ViewPoint, fw, fh float64, ap Aperture, apertureRatio, viewRatio float64) NormalizedPoint {
	if viewRatio > apertureRatio {
		// Feed spans the width; top and bottom are cropped.
		y2 := ap.Width * (fw / ap.Height)
		return NormalizedPoint{
			X: (p.Y + (y2-fh)/2) / y2,
			Y: (fw - p.X) / fw,
		}
	}

	// Feed spans the height; left and right are cropped.
	x2 := ap.Height * (fh / ap.Width)
	return NormalizedPoint{
		X: p.Y / fh,
		Y: 1 - (p.X+(x2-fw)/2)/x2,
	}
}

// RectOfInterest returns the part of the sensor that is visible in the
// viewfinder. Fill and AspectFit show the whole sensor. For AspectFill the
// view corners are mapped into sensor space and their bounding box, limited
// to [0,1], is returned.
func RectOfInterest(vp Viewport, ap Aperture) NormalizedRect {
	if Degenerate(vp, ap) || vp.FillMode != FillModeAspectFill {
		return FullFrame
	}

	corners := []ViewPoint{
		{X: 0, Y: 0},
		{X: vp.FrameWidth, Y: 0},
		{X: 0, Y: vp.FrameHeight},
		{X: vp.FrameWidth, Y: vp.FrameHeight},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		q := MapToPointOfInterest(c, vp, ap).Clamp()
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
	}
	return NormalizedRect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
