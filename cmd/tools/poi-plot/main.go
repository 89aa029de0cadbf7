// Command poi-plot draws where a lattice of viewfinder taps lands on the
// sensor for each fill mode, one PNG per mode.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/review"
)

var (
	onSensorColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	offSensorColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	boundsColor    = color.RGBA{A: 0xff}
)

func main() {
	outDir := flag.String("o", "poi-plots", "output directory")
	frameW := flag.Float64("w", 390, "viewfinder width in points")
	frameH := flag.Float64("h", 844, "viewfinder height in points")
	apW := flag.Float64("aw", 1280, "sensor clean aperture width")
	apH := flag.Float64("ah", 720, "sensor clean aperture height")
	steps := flag.Int("steps", 15, "taps per axis")
	flag.Parse()

	if *steps < 2 {
		log.Fatal("steps must be at least 2")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	ap := geometry.Aperture{Width: *apW, Height: *apH}
	for _, mode := range []geometry.FillMode{geometry.FillModeFill, geometry.FillModeAspectFit, geometry.FillModeAspectFill} {
		vp := geometry.Viewport{FrameWidth: *frameW, FrameHeight: *frameH, FillMode: mode}
		p, err := gridPlot(vp, ap, *steps)
		if err != nil {
			log.Fatalf("%s: %v", mode, err)
		}
		out := filepath.Join(*outDir, fmt.Sprintf("poi_%s.png", mode))
		if err := p.Save(6*vg.Inch, 6*vg.Inch, out); err != nil {
			log.Fatalf("save %s: %v", out, err)
		}
		log.Printf("wrote %s", out)
	}
}

func toXYs(pts []geometry.NormalizedPoint) plotter.XYs {
	xys := make(plotter.XYs, 0, len(pts))
	for _, p := range pts {
		xys = append(xys, plotter.XY{X: p.X, Y: p.Y})
	}
	return xys
}

// gridPlot builds a scatter of the mapped tap lattice with the unit sensor
// square outlined.
func gridPlot(vp geometry.Viewport, ap geometry.Aperture, steps int) (*plot.Plot, error) {
	in, out := review.POIGrid(vp, ap, steps)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %gx%g on %gx%g sensor", vp.FillMode, vp.FrameWidth, vp.FrameHeight, ap.Width, ap.Height)
	p.X.Label.Text = "sensor x"
	p.Y.Label.Text = "sensor y"

	bounds, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}})
	if err != nil {
		return nil, err
	}
	bounds.Color = boundsColor
	bounds.Width = vg.Points(1)
	p.Add(bounds)

	series := []struct {
		name  string
		pts   []geometry.NormalizedPoint
		color color.Color
	}{
		{"on sensor", in, onSensorColor},
		{"off sensor", out, offSensorColor},
	}
	for _, s := range series {
		if len(s.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(toXYs(s.pts))
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = s.color
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
