package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/geometry"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &Config{}

	if cfg.GetListen() != ":8090" {
		t.Errorf("GetListen() = %q, want :8090", cfg.GetListen())
	}
	if cfg.GetDBPath() != "viewfinder.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
	want := geometry.Viewport{FrameWidth: 390, FrameHeight: 844, FillMode: geometry.FillModeAspectFill}
	if diff := cmp.Diff(want, cfg.GetViewport()); diff != "" {
		t.Errorf("GetViewport() mismatch (-want +got):\n%s", diff)
	}
	opts := cfg.GetCameraOptions()
	if !opts.VideoEnabled || !opts.FixOrientationAfterCapture || opts.Mirror != capture.MirrorAuto {
		t.Errorf("unexpected default camera options %+v", opts)
	}
	if w, h := cfg.GetSensorSize(); w != 1280 || h != 720 {
		t.Errorf("GetSensorSize() = %d,%d", w, h)
	}
	if cfg.GetJPEGQuality() != 90 || cfg.GetThumbnailMax() != 320 {
		t.Errorf("unexpected output defaults %d %d", cfg.GetJPEGQuality(), cfg.GetThumbnailMax())
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "vf.json", `{
  "fill_mode": "resize_aspect",
  "frame_width": 400,
  "position": "front",
  "flash": "on",
  "mirror": "off",
  "fix_orientation_after_capture": false,
  "jpeg_quality": 75
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	vp := cfg.GetViewport()
	if vp.FillMode != geometry.FillModeAspectFit || vp.FrameWidth != 400 || vp.FrameHeight != 844 {
		t.Errorf("unexpected viewport %+v", vp)
	}
	opts := cfg.GetCameraOptions()
	if opts.Position != capture.PositionFront || opts.Flash != capture.FlashOn || opts.Mirror != capture.MirrorOff {
		t.Errorf("unexpected camera options %+v", opts)
	}
	if opts.FixOrientationAfterCapture {
		t.Error("expected fix_orientation_after_capture false to be honoured")
	}
	if cfg.GetJPEGQuality() != 75 {
		t.Errorf("GetJPEGQuality() = %d, want 75", cfg.GetJPEGQuality())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "vf.yaml", `{}`, ".json extension"},
		{"bad json", "vf.json", `{`, "parse config JSON"},
		{"bad fill mode", "vf.json", `{"fill_mode":"stretch"}`, "unknown fill mode"},
		{"bad flash", "vf.json", `{"flash":"strobe"}`, "unknown flash mode"},
		{"zero frame", "vf.json", `{"frame_height":0}`, "frame_height"},
		{"jpeg range", "vf.json", `{"jpeg_quality":101}`, "jpeg_quality"},
		{"tiny thumbnails", "vf.json", `{"thumbnail_max":4}`, "thumbnail_max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	big := writeConfig(t, "big.json", `{"listen":"`+strings.Repeat("x", maxFileSize)+`"}`)
	if _, err := Load(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults file invalid: %v", err)
	}
	// The defaults file must agree with the built-in fallbacks.
	empty := &Config{}
	if diff := cmp.Diff(empty.GetViewport(), cfg.GetViewport()); diff != "" {
		t.Errorf("viewport defaults drifted (-builtin +file):\n%s", diff)
	}
	if diff := cmp.Diff(empty.GetCameraOptions(), cfg.GetCameraOptions()); diff != "" {
		t.Errorf("camera defaults drifted (-builtin +file):\n%s", diff)
	}
	if cfg.GetListen() != empty.GetListen() || cfg.GetMediaDir() != empty.GetMediaDir() {
		t.Errorf("server defaults drifted: %s %s", cfg.GetListen(), cfg.GetMediaDir())
	}
}

func TestValidate_PointerHelpers(t *testing.T) {
	cfg := &Config{
		Listen:       ptrString(":9000"),
		FrameWidth:   ptrFloat64(-1),
		VideoEnabled: ptrBool(false),
		SensorWidth:  ptrInt(640),
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected negative frame width to fail validation")
	}
	cfg.FrameWidth = ptrFloat64(320)
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if cfg.GetCameraOptions().VideoEnabled {
		t.Error("expected video disabled")
	}
}
