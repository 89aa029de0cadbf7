package review

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"

	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/httputil"
	"github.com/banshee-data/viewfinder/internal/raster"
	"github.com/banshee-data/viewfinder/internal/security"
)

const defaultListLimit = 50

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	kind := db.Kind(r.URL.Query().Get("kind"))
	if kind != "" && kind != db.KindPhoto && kind != db.KindVideo {
		httputil.BadRequest(w, "kind must be photo or video")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	captures, err := s.library.List(r.Context(), kind, limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, captures)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	c, err := s.library.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, c)
}

func (s *Server) handleDeleteCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCaptureImage renders a stored photo.
// Query params:
//   - fmt: png (default), jpeg, bmp, tiff or gif
//   - thumb: longest edge in pixels, capped at ThumbnailMax; 0 for full size
//   - upright: "0" returns the stored pixels without applying the orientation tag
func (s *Server) handleCaptureImage(w http.ResponseWriter, r *http.Request) {
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

	img, _, err := s.library.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	if q.Get("upright") != "0" {
		if img, err = raster.Normalize(img); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
	}
	s.writeRaster(w, img, codec, thumb)
}

// writeRaster encodes img, optionally scaled to fit a thumb x thumb box.
func (s *Server) writeRaster(w http.ResponseWriter, img *raster.Raster, codec raster.Codec, thumb int) {
	out, err := img.Image()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if thumb > 0 {
		out = Thumbnail(out, thumb)
	}

	var buf bytes.Buffer
	if err := raster.EncodeImage(&buf, out, codec, &raster.EncodeOptions{JPEGQuality: s.opts.JPEGQuality}); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", codec.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCaptureFile(w http.ResponseWriter, r *http.Request) {
	data, c, err := s.library.ReadFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	ct := mime.TypeByExtension(filepath.Ext(c.Path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", security.SanitizeFilename(filepath.Base(c.Path))))
	_, _ = w.Write(data)
}

// Thumbnail scales img to fit within limit x limit, keeping its aspect
// ratio. Images that already fit are returned unchanged.
func Thumbnail(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}
	tw, th := limit, limit
	if w >= h {
		th = max(1, h*limit/w)
	} else {
		tw = max(1, w*limit/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
