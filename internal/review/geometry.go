package review

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/viewfinder/internal/geometry"
	"github.com/banshee-data/viewfinder/internal/httputil"
	"github.com/banshee-data/viewfinder/internal/raster"
)

// defaultAperture stands in for the sensor when no camera is attached.
var defaultAperture = geometry.Aperture{Width: 1280, Height: 720}

// POIRequest is the body of POST /api/poi. Viewport and Aperture default
// to the server viewport and the attached camera's clean aperture.
type POIRequest struct {
	Tap      geometry.ViewPoint `json:"tap"`
	Viewport *geometry.Viewport `json:"viewport,omitempty"`
	Aperture *geometry.Aperture `json:"aperture,omitempty"`
}

// POIResponse reports a mapped tap. POI is the raw mapper output; Clamped
// is what a device would be given.
type POIResponse struct {
	POI            geometry.NormalizedPoint `json:"poi"`
	Clamped        geometry.NormalizedPoint `json:"clamped"`
	InRange        bool                     `json:"in_range"`
	Degenerate     bool                     `json:"degenerate"`
	Viewport       geometry.Viewport        `json:"viewport"`
	Aperture       geometry.Aperture        `json:"aperture"`
	RectOfInterest geometry.NormalizedRect  `json:"rect_of_interest"`
}

func (s *Server) aperture() geometry.Aperture {
	if s.camera != nil {
		return s.camera.CleanAperture()
	}
	return defaultAperture
}

func (s *Server) handlePOI(w http.ResponseWriter, r *http.Request) {
	var req POIRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	vp := s.opts.Viewport
	if req.Viewport != nil {
		vp = *req.Viewport
	}
	ap := s.aperture()
	if req.Aperture != nil {
		ap = *req.Aperture
	}

	poi := geometry.MapToPointOfInterest(req.Tap, vp, ap)
	httputil.WriteJSONOK(w, POIResponse{
		POI:            poi,
		Clamped:        poi.Clamp(),
		InRange:        poi.InRange(),
		Degenerate:     geometry.Degenerate(vp, ap),
		Viewport:       vp,
		Aperture:       ap,
		RectOfInterest: geometry.RectOfInterest(vp, ap),
	})
}

// handleNormalize bakes the orientation of an uploaded image into its
// pixels. The body is the encoded image.
// Query params:
//   - orientation: overrides the EXIF tag (name such as "right" or EXIF value 1-8)
//   - fmt: output format, png by default
//   - thumb: longest edge of the output, capped at ThumbnailMax
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	codec := raster.CodecPNG
	if f := q.Get("fmt"); f != "" {
		var err error
		if codec, err = raster.ParseCodec(f); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	thumb, err := queryInt(r, "thumb", 0)
	if err != nil || thumb < 0 {
		httputil.BadRequest(w, "invalid thumb parameter")
		return
	}
	thumb = min(thumb, s.opts.ThumbnailMax)

	src, err := raster.Decode(r.Body)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if o := q.Get("orientation"); o != "" {
		if src.Orientation, err = raster.ParseOrientation(o); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	upright, err := raster.Normalize(src)
	if err != nil {
		var rte *raster.RenderTargetError
		if errors.As(err, &rte) {
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("X-Source-Orientation", src.Orientation.String())
	w.Header().Set("X-Source-Size", fmt.Sprintf("%dx%d", src.Width(), src.Height()))
	s.writeRaster(w, upright, codec, thumb)
}

// poiGridParams are the query parameters of the poi-grid page.
type poiGridParams struct {
	viewport geometry.Viewport
	aperture geometry.Aperture
	steps    int
}

func (s *Server) parsePOIGridParams(r *http.Request) (poiGridParams, error) {
	p := poiGridParams{viewport: s.opts.Viewport, aperture: s.aperture(), steps: 12}
	q := r.URL.Query()
	floats := []struct {
		name string
		dst  *float64
	}{
		{"w", &p.viewport.FrameWidth},
		{"h", &p.viewport.FrameHeight},
		{"aw", &p.aperture.Width},
		{"ah", &p.aperture.Height},
	}
	for _, f := range floats {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return p, fmt.Errorf("invalid %s parameter", f.name)
			}
			*f.dst = n
		}
	}
	if v := q.Get("mode"); v != "" {
		m, err := geometry.ParseFillMode(v)
		if err != nil {
			return p, err
		}
		p.viewport.FillMode = m
	}
	steps, err := queryInt(r, "steps", p.steps)
	if err != nil || steps < 2 || steps > 100 {
		return p, errors.New("steps must be between 2 and 100")
	}
	p.steps = steps
	return p, nil
}

// gridOverscan is how far past each edge of the view the poi grid reaches,
// as a fraction of the view.
const gridOverscan = 0.25

// POIGrid maps a steps x steps lattice of taps and splits the results into
// in-range points and points off the sensor. The lattice overscans the
// viewport by gridOverscan on every side so off-sensor taps show up.
func POIGrid(vp geometry.Viewport, ap geometry.Aperture, steps int) (in, out []geometry.NormalizedPoint) {
	frac := func(i int) float64 {
		return -gridOverscan + (1+2*gridOverscan)*float64(i)/float64(steps-1)
	}
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			tap := geometry.ViewPoint{X: vp.FrameWidth * frac(i), Y: vp.FrameHeight * frac(j)}
			poi := geometry.MapToPointOfInterest(tap, vp, ap)
			if poi.InRange() {
				in = append(in, poi)
			} else {
				out = append(out, poi)
			}
		}
	}
	return in, out
}

// handlePOIGrid renders the mapped tap lattice with go-echarts, a debugging
// aid for comparing fill modes.
// Query params: w, h, mode (viewport), aw, ah (aperture), steps.
func (s *Server) handlePOIGrid(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePOIGridParams(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	in, out := POIGrid(p.viewport, p.aperture, p.steps)

	toScatter := func(pts []geometry.NormalizedPoint) []opts.ScatterData {
		data := make([]opts.ScatterData, 0, len(pts))
		for _, pt := range pts {
			data = append(data, opts.ScatterData{Value: []interface{}{pt.X, pt.Y}})
		}
		return data
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "POI grid", Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Point-of-interest grid",
			Subtitle: fmt.Sprintf("view=%gx%g %s aperture=%gx%g taps=%d",
				p.viewport.FrameWidth, p.viewport.FrameHeight, p.viewport.FillMode,
				p.aperture.Width, p.aperture.Height, p.steps*p.steps),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -0.25, Max: 1.25, Name: "sensor x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -0.25, Max: 1.25, Name: "sensor y", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("on sensor", toScatter(in), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("off sensor", toScatter(out), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
