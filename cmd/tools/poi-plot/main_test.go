package main

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/viewfinder/internal/geometry"
)

func TestGridPlot(t *testing.T) {
	ap := geometry.Aperture{Width: 1280, Height: 720}
	for _, mode := range []geometry.FillMode{geometry.FillModeFill, geometry.FillModeAspectFit, geometry.FillModeAspectFill} {
		t.Run(mode.String(), func(t *testing.T) {
			vp := geometry.Viewport{FrameWidth: 390, FrameHeight: 844, FillMode: mode}
			p, err := gridPlot(vp, ap, 5)
			if err != nil {
				t.Fatalf("gridPlot: %v", err)
			}
			out := filepath.Join(t.TempDir(), "grid.png")
			if err := p.Save(2*vg.Inch, 2*vg.Inch, out); err != nil {
				t.Fatalf("save: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("stat: %v", err)
			}
			if info.Size() == 0 {
				t.Error("expected a non-empty PNG")
			}
		})
	}
}
