package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cropmap-viewer/internal/backend"
	"cropmap-viewer/internal/config"
	"cropmap-viewer/internal/export"
	"cropmap-viewer/internal/loader"
	"cropmap-viewer/internal/surface"
	"cropmap-viewer/internal/viewer"
	"cropmap-viewer/internal/workflow"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	envFile := flag.String("env", ".env", "Path to .env file (skipped if missing)")
	backendURL := flag.String("backend", "", "Backend base URL (default: http://localhost:5000)")
	archive := flag.String("archive", "", "Zipped shapefile to upload")
	outputDir := flag.String("output", "", "Output directory (default: output)")
	formats := flag.String("formats", "", "Comma separated export formats: webp,png,tga (default: webp)")
	preview := flag.Int("preview", 0, "Bound the longer side of exported images (0 = full size)")
	serve := flag.Bool("serve", false, "Keep serving the viewer after the run")
	listen := flag.String("listen", "", "Viewer listen address (default: localhost:3000)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (default: info)")

	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg.Resolve(config.Flags{
		BackendURL: *backendURL,
		OutputDir:  *outputDir,
		Listen:     *listen,
		LogLevel:   *logLevel,
		Formats:    *formats,
		Preview:    *preview,
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	exportFormats, err := export.ParseFormats(strings.Join(cfg.Formats, ","))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *archive == "" && !*serve {
		fmt.Fprintln(os.Stderr, "Error: nothing to do. Use -archive to run the flow or -serve for the viewer.")
		os.Exit(1)
	}

	client, err := backend.New(cfg.BackendURL, backend.WithLogger(logrus.StandardLogger()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	session := workflow.NewSession(client)
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Crop-mapping client")
	fmt.Printf("Backend: %s\n", cfg.BackendURL)
	fmt.Printf("Output: %s (%v)\n", cfg.OutputDir, exportFormats)
	fmt.Println("------------------------------------------------------------")

	failed := false
	if *archive != "" {
		start := time.Now()
		if err := run(ctx, cfg, session, *archive, exportFormats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
		}
		fmt.Println("------------------------------------------------------------")
		fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())
	}

	if *serve {
		host := cfg.Listen
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		fmt.Printf("Viewer: http://%s/api/state\n", host)
		if err := viewer.Serve(ctx, cfg.Listen, viewer.NewRouter(session)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: viewer: %v\n", err)
			os.Exit(1)
		}
	}

	if failed {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, s *workflow.Session, archive string, formats []string) error {
	if !cfg.SkipArchiveCheck {
		info, err := workflow.ValidateArchive(archive)
		if err != nil {
			return err
		}
		fmt.Printf("Archive: %d shapefile(s), %d component file(s)\n", len(info.Shapefiles), info.Components)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSecs)*time.Second)
	defer cancel()

	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	mapURL, err := s.Upload(ctx, filepath.Base(archive), f)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	fmt.Printf("Map: %s\n", mapURL)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if b, err := s.Blobs().Get(mapURL); err == nil {
		mapPath := filepath.Join(cfg.OutputDir, "map.html")
		if err := os.WriteFile(mapPath, b.Data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: map write failed: %v\n", err)
		} else {
			fmt.Printf("Map saved: %s\n", mapPath)
		}
	}

	if err := s.Proceed(ctx); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if err := s.OutputErr(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: output image: %v\n", err)
	}

	cycle, err := s.Loader().Wait(ctx)
	if err != nil {
		return fmt.Errorf("raster: %w", err)
	}
	fmt.Printf("Raster: cycle %d %s\n", cycle.ID, cycle.State())

	var entries []export.ManifestEntry
	for _, target := range []struct {
		name  string
		sf    *surface.Surface
		cycle *loader.Cycle
	}{
		{"output", s.OutputSurface(), nil},
		{"raster", s.RasterSurface(), cycle},
	} {
		entry, ok, err := exportSurface(cfg, target.name, target.sf, formats)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("  %s: blank, skipped\n", target.name)
			continue
		}
		if target.cycle != nil {
			entry.Source = target.cycle.Source
			entry.Cycle = target.cycle.ID
			entry.State = target.cycle.State().String()
		}
		entries = append(entries, entry)
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := export.WriteManifest(manifestPath, entries); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if cycle.State() != loader.Done {
		return fmt.Errorf("raster cycle ended %s: %v", cycle.State(), cycle.Err())
	}
	return nil
}

func exportSurface(cfg config.Config, name string, sf *surface.Surface, formats []string) (export.ManifestEntry, bool, error) {
	snap := sf.Snapshot()
	if snap == nil {
		return export.ManifestEntry{}, false, nil
	}
	var img image.Image = snap
	if cfg.PreviewSize > 0 {
		img = export.Downsample(snap, cfg.PreviewSize)
	}

	files, err := export.WriteFiles(cfg.OutputDir, name, img, formats)
	if err != nil {
		return export.ManifestEntry{}, false, err
	}
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	b := img.Bounds()
	return export.ManifestEntry{
		Surface:  name,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Files:    files,
		Exported: time.Now().UTC(),
	}, true, nil
}
