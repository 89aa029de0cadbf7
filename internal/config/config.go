package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/geometry"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/viewfinder.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the viewfinder service configuration. Every field is optional;
// the Get* accessors fall back to built-in defaults, so partial files are
// safe.
type Config struct {
	// Server and storage
	Listen   *string `json:"listen,omitempty"`
	DBPath   *string `json:"db_path,omitempty"`
	MediaDir *string `json:"media_dir,omitempty"`

	// Viewfinder geometry
	FillMode    *string  `json:"fill_mode,omitempty"`
	FrameWidth  *float64 `json:"frame_width,omitempty"`
	FrameHeight *float64 `json:"frame_height,omitempty"`

	// Camera behaviour
	Position                   *string `json:"position,omitempty"`
	Flash                      *string `json:"flash,omitempty"`
	Mirror                     *string `json:"mirror,omitempty"`
	VideoEnabled               *bool   `json:"video_enabled,omitempty"`
	UseDeviceOrientation       *bool   `json:"use_device_orientation,omitempty"`
	FixOrientationAfterCapture *bool   `json:"fix_orientation_after_capture,omitempty"`

	// Synthetic sensor used in dev mode
	SensorWidth  *int `json:"sensor_width,omitempty"`
	SensorHeight *int `json:"sensor_height,omitempty"`

	// Review output
	JPEGQuality  *int `json:"jpeg_quality,omitempty"`
	ThumbnailMax *int `json:"thumbnail_max,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. It panics when the file cannot be found and is
// intended for tests.
func MustLoadDefaultConfig() *Config {
	prefix := ""
	for i := 0; i < 5; i++ {
		if cfg, err := Load(prefix + DefaultConfigPath); err == nil {
			return cfg
		}
		prefix += "../"
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every field that is set.
func (c *Config) Validate() error {
	if c.FillMode != nil {
		if _, err := geometry.ParseFillMode(*c.FillMode); err != nil {
			return err
		}
	}
	if c.FrameWidth != nil && *c.FrameWidth <= 0 {
		return fmt.Errorf("frame_width must be positive, got %g", *c.FrameWidth)
	}
	if c.FrameHeight != nil && *c.FrameHeight <= 0 {
		return fmt.Errorf("frame_height must be positive, got %g", *c.FrameHeight)
	}
	if c.Position != nil {
		if _, err := capture.ParsePosition(*c.Position); err != nil {
			return err
		}
	}
	if c.Flash != nil {
		if _, err := capture.ParseFlashMode(*c.Flash); err != nil {
			return err
		}
	}
	if c.Mirror != nil {
		if _, err := capture.ParseMirrorMode(*c.Mirror); err != nil {
			return err
		}
	}
	if c.SensorWidth != nil && *c.SensorWidth <= 0 {
		return fmt.Errorf("sensor_width must be positive, got %d", *c.SensorWidth)
	}
	if c.SensorHeight != nil && *c.SensorHeight <= 0 {
		return fmt.Errorf("sensor_height must be positive, got %d", *c.SensorHeight)
	}
	if c.JPEGQuality != nil && (*c.JPEGQuality < 1 || *c.JPEGQuality > 100) {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", *c.JPEGQuality)
	}
	if c.ThumbnailMax != nil && *c.ThumbnailMax < 16 {
		return fmt.Errorf("thumbnail_max must be at least 16, got %d", *c.ThumbnailMax)
	}
	return nil
}

// GetListen returns the HTTP listen address.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8090"
	}
	return *c.Listen
}

// GetDBPath returns the SQLite database path.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "viewfinder.db"
	}
	return *c.DBPath
}

// GetMediaDir returns the directory photos and videos are written to.
func (c *Config) GetMediaDir() string {
	if c.MediaDir == nil || *c.MediaDir == "" {
		return "media"
	}
	return *c.MediaDir
}

// GetViewport returns the default viewfinder geometry.
func (c *Config) GetViewport() geometry.Viewport {
	vp := geometry.Viewport{FrameWidth: 390, FrameHeight: 844, FillMode: geometry.FillModeAspectFill}
	if c.FrameWidth != nil {
		vp.FrameWidth = *c.FrameWidth
	}
	if c.FrameHeight != nil {
		vp.FrameHeight = *c.FrameHeight
	}
	if c.FillMode != nil {
		if m, err := geometry.ParseFillMode(*c.FillMode); err == nil {
			vp.FillMode = m
		}
	}
	return vp
}

// GetCameraOptions returns the capture options described by c.
func (c *Config) GetCameraOptions() capture.Options {
	opts := capture.Options{
		Position:                   capture.PositionRear,
		Flash:                      capture.FlashOff,
		Mirror:                     capture.MirrorAuto,
		VideoEnabled:               true,
		FixOrientationAfterCapture: true,
	}
	if c.Position != nil {
		if p, err := capture.ParsePosition(*c.Position); err == nil {
			opts.Position = p
		}
	}
	if c.Flash != nil {
		if f, err := capture.ParseFlashMode(*c.Flash); err == nil {
			opts.Flash = f
		}
	}
	if c.Mirror != nil {
		if m, err := capture.ParseMirrorMode(*c.Mirror); err == nil {
			opts.Mirror = m
		}
	}
	if c.VideoEnabled != nil {
		opts.VideoEnabled = *c.VideoEnabled
	}
	if c.UseDeviceOrientation != nil {
		opts.UseDeviceOrientation = *c.UseDeviceOrientation
	}
	if c.FixOrientationAfterCapture != nil {
		opts.FixOrientationAfterCapture = *c.FixOrientationAfterCapture
	}
	return opts
}

// GetSensorSize returns the synthetic sensor extent.
func (c *Config) GetSensorSize() (int, int) {
	w, h := 1280, 720
	if c.SensorWidth != nil {
		w = *c.SensorWidth
	}
	if c.SensorHeight != nil {
		h = *c.SensorHeight
	}
	return w, h
}

// GetJPEGQuality returns the JPEG quality used for review downloads.
func (c *Config) GetJPEGQuality() int {
	if c.JPEGQuality == nil {
		return 90
	}
	return *c.JPEGQuality
}

// GetThumbnailMax returns the longest edge of review thumbnails.
func (c *Config) GetThumbnailMax() int {
	if c.ThumbnailMax == nil {
		return 320
	}
	return *c.ThumbnailMax
}
