// Package media stores captured photos and videos under a media directory
// and indexes them in the capture ledger.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/fsutil"
	"github.com/banshee-data/viewfinder/internal/monitoring"
	"github.com/banshee-data/viewfinder/internal/raster"
	"github.com/banshee-data/viewfinder/internal/security"
)

const (
	photoDir = "photos"
	videoDir = "videos"
)

// ErrNotPhoto is returned by Open for captures that are not stills.
var ErrNotPhoto = errors.New("media: capture is not a photo")

// Ledger is the subset of *db.DB the library uses.
type Ledger interface {
	InsertCapture(ctx context.Context, c *db.Capture) error
	GetCapture(ctx context.Context, id string) (db.Capture, error)
	ListCaptures(ctx context.Context, kind db.Kind, limit int) ([]db.Capture, error)
	DeleteCapture(ctx context.Context, id string) error
}

// Library implements capture.Library. Photos are written as PNG; the
// orientation tag lives in the ledger because PNG has nowhere to keep it.
type Library struct {
	fs     fsutil.FileSystem
	root   string
	ledger Ledger
}

var _ capture.Library = (*Library)(nil)

// NewLibrary prepares root and returns a library writing through fsys.
func NewLibrary(fsys fsutil.FileSystem, root string, ledger Ledger) (*Library, error) {
	for _, dir := range []string{photoDir, videoDir} {
		if err := fsys.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("media: create %s: %w", dir, err)
		}
	}
	return &Library{fs: fsys, root: root, ledger: ledger}, nil
}

// Root returns the media directory.
func (l *Library) Root() string { return l.root }

// SavePhoto encodes p.Image as PNG and records it.
func (l *Library) SavePhoto(ctx context.Context, p *capture.Photo) (string, error) {
	if p == nil || p.Image == nil {
		return "", errors.New("media: photo has no image")
	}
	id := uuid.NewString()
	rel := filepath.ToSlash(filepath.Join(photoDir, id+".png"))

	var buf bytes.Buffer
	if err := raster.Encode(&buf, p.Image, raster.CodecPNG, nil); err != nil {
		return "", fmt.Errorf("media: encode photo: %w", err)
	}
	abs := filepath.Join(l.root, filepath.FromSlash(rel))
	if err := fsutil.WriteFileAtomic(l.fs, abs, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("media: %w", err)
	}

	c := &db.Capture{
		CaptureID:   id,
		Kind:        db.KindPhoto,
		Path:        rel,
		Width:       p.Image.Width(),
		Height:      p.Image.Height(),
		Orientation: p.Image.Orientation.String(),
		Position:    p.Position.String(),
		Normalized:  p.Normalized,
		Cropped:     p.Cropped,
		CreatedAt:   p.CapturedAt,
	}
	if err := l.ledger.InsertCapture(ctx, c); err != nil {
		l.removeFile(abs)
		return "", fmt.Errorf("media: record photo: %w", err)
	}
	return id, nil
}

// NewVideoPath returns a fresh path under the videos directory for a
// recorder to write to.
func (l *Library) NewVideoPath(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(l.root, videoDir, uuid.NewString()+ext)
}

// SaveVideo records a movie the recorder has already written.
func (l *Library) SaveVideo(ctx context.Context, v *capture.Video) (string, error) {
	if v == nil || v.Path == "" {
		return "", errors.New("media: video has no path")
	}
	if !l.fs.Exists(v.Path) {
		return "", fmt.Errorf("media: video file %s missing", v.Path)
	}
	abs, err := l.abs(v.Path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(filepath.Clean(l.root), abs)
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	rel = filepath.ToSlash(rel)

	// Files from NewVideoPath are named by their capture ID.
	var id string
	base := filepath.Base(v.Path)
	if u, err := uuid.Parse(strings.TrimSuffix(base, filepath.Ext(base))); err == nil {
		id = u.String()
	}

	c := &db.Capture{
		CaptureID:   id,
		Kind:        db.KindVideo,
		Path:        rel,
		Width:       v.Width,
		Height:      v.Height,
		Orientation: v.Orientation.String(),
		Duration:    v.Duration,
		CreatedAt:   v.RecordedAt,
	}
	if err := l.ledger.InsertCapture(ctx, c); err != nil {
		return "", fmt.Errorf("media: record video: %w", err)
	}
	return c.CaptureID, nil
}

// List returns ledger entries newest first.
func (l *Library) List(ctx context.Context, kind db.Kind, limit int) ([]db.Capture, error) {
	return l.ledger.ListCaptures(ctx, kind, limit)
}

// Get returns the ledger entry for id.
func (l *Library) Get(ctx context.Context, id string) (db.Capture, error) {
	return l.ledger.GetCapture(ctx, id)
}

// Open loads a stored photo with its recorded orientation tag.
func (l *Library) Open(ctx context.Context, id string) (*raster.Raster, db.Capture, error) {
	c, err := l.ledger.GetCapture(ctx, id)
	if err != nil {
		return nil, db.Capture{}, err
	}
	if c.Kind != db.KindPhoto {
		return nil, c, ErrNotPhoto
	}
	abs, err := l.abs(c.Path)
	if err != nil {
		return nil, c, err
	}
	f, err := l.fs.Open(abs)
	if err != nil {
		return nil, c, fmt.Errorf("media: open %s: %w", c.Path, err)
	}
	defer f.Close()

	img, err := raster.Decode(f)
	if err != nil {
		return nil, c, fmt.Errorf("media: %s: %w", c.Path, err)
	}
	if o, err := raster.ParseOrientation(c.Orientation); err == nil {
		img.Orientation = o
	} else {
		monitoring.Logf("media: capture %s has unknown orientation %q, treating as up", id, c.Orientation)
	}
	return img, c, nil
}

// ReadFile returns the stored bytes of any capture.
func (l *Library) ReadFile(ctx context.Context, id string) ([]byte, db.Capture, error) {
	c, err := l.ledger.GetCapture(ctx, id)
	if err != nil {
		return nil, db.Capture{}, err
	}
	abs, err := l.abs(c.Path)
	if err != nil {
		return nil, c, err
	}
	data, err := l.fs.ReadFile(abs)
	if err != nil {
		return nil, c, fmt.Errorf("media: read %s: %w", c.Path, err)
	}
	return data, c, nil
}

// Delete removes a capture from the ledger and its file from disk. A file
// that is already gone is logged, not reported.
func (l *Library) Delete(ctx context.Context, id string) error {
	c, err := l.ledger.GetCapture(ctx, id)
	if err != nil {
		return err
	}
	if err := l.ledger.DeleteCapture(ctx, id); err != nil {
		return err
	}
	abs, err := l.abs(c.Path)
	if err != nil {
		monitoring.Logf("media: not removing file of capture %s: %v", id, err)
		return nil
	}
	l.removeFile(abs)
	return nil
}

// Orphans lists media files that have no ledger entry, such as those left
// behind by a crash between writing a file and recording it.
func (l *Library) Orphans(ctx context.Context) ([]string, error) {
	var orphans []string
	for _, dir := range []string{photoDir, videoDir} {
		names, err := l.fs.Glob(filepath.Join(l.root, dir, "*"))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			base := filepath.Base(name)
			if strings.HasPrefix(base, ".") {
				continue
			}
			id := strings.TrimSuffix(base, filepath.Ext(base))
			_, err := l.ledger.GetCapture(ctx, id)
			if errors.Is(err, db.ErrCaptureNotFound) {
				orphans = append(orphans, name)
			} else if err != nil {
				return nil, err
			}
		}
	}
	return orphans, nil
}

// abs resolves a ledger path. Paths that leave the media directory are
// refused so a tampered ledger cannot expose other files.
func (l *Library) abs(rel string) (string, error) {
	p, err := security.ResolveWithin(l.root, rel)
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	return p, nil
}

func (l *Library) removeFile(name string) {
	if err := l.fs.Remove(name); err != nil {
		monitoring.Logf("media: remove %s: %v", name, err)
	}
}
