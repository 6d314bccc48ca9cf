package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cropmap-viewer/internal/backend"
	"cropmap-viewer/internal/decoder"
	"cropmap-viewer/internal/export"
	"cropmap-viewer/internal/loader"
	"cropmap-viewer/internal/surface"
)

// fileFetcher reads local paths so files go through the same loader cycle
// as URLs.
type fileFetcher struct{}

func (fileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func main() {
	outDir := flag.String("output", ".", "Output directory")
	name := flag.String("name", "raster", "Output file name without extension")
	formats := flag.String("formats", "png", "Comma separated export formats: webp,png,tga")
	preview := flag.Int("preview", 0, "Bound the longer side of the image (0 = full size)")
	timeout := flag.Duration("timeout", time.Minute, "Fetch timeout for URLs")
	logLevel := flag.String("loglevel", "info", "Log level")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tifrender [flags] <file.tif | http://host/tif>")
		os.Exit(2)
	}
	src := flag.Arg(0)

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	fmts, err := export.ParseFormats(*formats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var fetcher loader.Fetcher = fileFetcher{}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		c, err := backend.New(src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fetcher = c
	}

	sf := surface.New()
	sf.Mount()
	l := loader.New(fetcher, decoder.TIFF{}, sf)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	cycle := l.Load(ctx, src)
	if _, err := l.Wait(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cycle.State() != loader.Done {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", cycle.State(), cycle.Err())
		os.Exit(1)
	}

	var img image.Image = sf.Snapshot()
	if *preview > 0 {
		img = export.Downsample(img, *preview)
	}
	files, err := export.WriteFiles(*outDir, *name, img, fmts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	b := img.Bounds()
	fmt.Printf("Rendered %dx%d in %.2fs\n", b.Dx(), b.Dy(), time.Since(start).Seconds())
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
}
