package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/viewfinder/internal/capture"
	"github.com/banshee-data/viewfinder/internal/config"
	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/fsutil"
	"github.com/banshee-data/viewfinder/internal/media"
	"github.com/banshee-data/viewfinder/internal/review"
	"github.com/banshee-data/viewfinder/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to JSON config file (built-in defaults when empty)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	dbPath      = flag.String("db", "", "Path to the capture ledger (overrides config)")
	mediaDir    = flag.String("media", "", "Directory for captured media (overrides config)")
	devMode     = flag.Bool("dev", false, "Attach a synthetic camera")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: viewfinder [flags]\n")
	fmt.Fprintf(out, "       viewfinder [flags] migrate <action>\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if flag.NArg() > 0 {
		if flag.Arg(0) != "migrate" {
			usage()
			os.Exit(2)
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], cfg.GetDBPath(), os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	if cfg.GetListen() == "" {
		log.Fatal("Listen address is required")
	}

	database, err := db.Open(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to open capture ledger: %v", err)
	}
	defer database.Close()

	library, err := media.NewLibrary(fsutil.OSFileSystem{}, cfg.GetMediaDir(), database)
	if err != nil {
		log.Fatalf("failed to open media library: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if orphans, err := library.Orphans(ctx); err != nil {
		log.Printf("orphan scan failed: %v", err)
	} else if len(orphans) > 0 {
		log.Printf("%d media files have no ledger entry, first: %s", len(orphans), orphans[0])
	}

	var camera *capture.Camera
	if *devMode {
		camera = newSyntheticCamera(cfg, library)
		log.Printf("attached synthetic camera, state %+v", camera.State())
	}

	mux, err := newMux(cfg, database, camera, library)
	if err != nil {
		log.Fatalf("failed to build routes: %v", err)
	}
	server := &http.Server{
		Addr:              cfg.GetListen(),
		Handler:           review.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("%s listening on %s", version.String(), server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if camera != nil && camera.Recording() {
		if _, err := camera.StopRecording(shutdownCtx); err != nil {
			log.Printf("failed to finish recording: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads path, or returns an empty config when path is empty,
// and applies command-line overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if *listen != "" {
		cfg.Listen = listen
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}
	if *mediaDir != "" {
		cfg.MediaDir = mediaDir
	}
	return cfg, nil
}

func newSyntheticCamera(cfg *config.Config, library *media.Library) *capture.Camera {
	w, h := cfg.GetSensorSize()
	sensor := capture.NewSynthetic(w, h)
	sensor.FS = fsutil.OSFileSystem{}
	return capture.New(sensor, sensor, sensor, library, cfg.GetCameraOptions())
}

// newMux mounts the review API and the admin debug routes. camera may be
// nil.
func newMux(cfg *config.Config, database *db.DB, camera *capture.Camera, library *media.Library) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}
	review.NewServer(camera, library, database, review.Options{
		Viewport:     cfg.GetViewport(),
		JPEGQuality:  cfg.GetJPEGQuality(),
		ThumbnailMax: cfg.GetThumbnailMax(),
	}).Attach(mux)
	return mux, nil
}
