// Package workflow drives the upload → process → output flow against the
// backend and keeps the view state the viewer and CLI present.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"cropmap-viewer/internal/backend"
	"cropmap-viewer/internal/blob"
	"cropmap-viewer/internal/decoder"
	"cropmap-viewer/internal/loader"
	"cropmap-viewer/internal/raster"
	"cropmap-viewer/internal/surface"
)

// Route names a view.
type Route string

const (
	RouteHome   Route = "/"
	RouteVerify Route = "/VerifyDataPoints"
	RouteOutput Route = "/Output"
)

// ErrNoMap is returned by Proceed before a map has been uploaded.
var ErrNoMap = errors.New("workflow: no map uploaded")

// ErrUnknownRoute is returned by Navigate for a route outside the table.
var ErrUnknownRoute = errors.New("workflow: unknown route")

func (r Route) valid() bool {
	switch r {
	case RouteHome, RouteVerify, RouteOutput:
		return true
	}
	return false
}

func (r Route) uploadView() bool {
	return r == RouteHome || r == RouteVerify
}

// Session is one user's pass through the views.
type Session struct {
	client *backend.Client
	blobs  *blob.Store
	raster *loader.Loader
	output *surface.Surface
	log    logrus.FieldLogger

	mu        sync.Mutex
	route     Route
	mapURL    string
	outputErr error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// WithBlobStore shares a blob store, e.g. with the viewer that serves it.
func WithBlobStore(b *blob.Store) Option {
	return func(s *Session) { s.blobs = b }
}

// NewSession starts at the home route with fresh surfaces.
func NewSession(c *backend.Client, opts ...Option) *Session {
	s := &Session{
		client: c,
		blobs:  blob.NewStore(),
		output: surface.New(),
		log:    logrus.StandardLogger(),
		route:  RouteHome,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.raster = loader.New(c, decoder.TIFF{}, surface.New(), loader.WithLogger(s.log))
	return s
}

// Blobs returns the store holding uploaded map documents.
func (s *Session) Blobs() *blob.Store { return s.blobs }

// Backend returns the client the session talks to.
func (s *Session) Backend() *backend.Client { return s.client }

// Loader returns the raster surface's loader.
func (s *Session) Loader() *loader.Loader { return s.raster }

// RasterSurface returns the surface painted by loader cycles.
func (s *Session) RasterSurface() *surface.Surface { return s.raster.Surface() }

// OutputSurface returns the surface showing the backend's /Output image.
func (s *Session) OutputSurface() *surface.Surface { return s.output }

// Route returns the current view.
func (s *Session) Route() Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// MapURL returns the object URL of the current map, or "".
func (s *Session) MapURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapURL
}

// OutputErr returns the failure of the last /Output image load, if any.
func (s *Session) OutputErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputErr
}

// Upload sends a zipped shapefile to the backend and stores the returned
// HTML map as a blob. On failure the session is unchanged.
func (s *Session) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	html, err := s.client.UploadMarkers(ctx, filename, r)
	if err != nil {
		s.log.WithError(err).WithField("file", filename).Error("upload error")
		return "", err
	}

	objectURL := s.blobs.Create(html, "text/html; charset=utf-8")

	s.mu.Lock()
	prev := s.mapURL
	s.mapURL = objectURL
	s.mu.Unlock()

	if prev != "" {
		s.blobs.Revoke(prev)
	}
	s.log.WithFields(logrus.Fields{
		"file":  filename,
		"map":   objectURL,
		"bytes": len(html),
	}).Info("map uploaded")
	return objectURL, nil
}

// Proceed asks the backend to process the uploaded shapefiles and moves to
// the output view on success.
func (s *Session) Proceed(ctx context.Context) error {
	if s.MapURL() == "" {
		return ErrNoMap
	}
	if err := s.client.ProcessShapefiles(ctx); err != nil {
		s.log.WithError(err).Error("process error")
		return err
	}
	return s.Navigate(ctx, RouteOutput)
}

// Navigate switches views. Leaving the upload view releases the map blob.
// Entering the output view paints the /Output image and starts a raster
// load for /tif; failures there are logged, not returned.
func (s *Session) Navigate(ctx context.Context, to Route) error {
	if !to.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRoute, to)
	}

	s.mu.Lock()
	from := s.route
	s.route = to
	var released string
	if from.uploadView() && !to.uploadView() {
		released = s.mapURL
		s.mapURL = ""
	}
	entering := to == RouteOutput && from != RouteOutput
	// Surfaces follow the route under the same lock.
	switch {
	case entering:
		s.output.Mount()
		s.RasterSurface().Mount()
	case from == RouteOutput && to != RouteOutput:
		s.output.Unmount()
		s.RasterSurface().Unmount()
	}
	s.mu.Unlock()

	if released != "" {
		s.blobs.Revoke(released)
	}
	s.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("navigate")

	if entering {
		s.enterOutput(ctx)
	}
	return nil
}

func (s *Session) enterOutput(ctx context.Context) {
	err := s.paintOutput(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to load image")
	}

	s.mu.Lock()
	s.outputErr = err
	still := s.route == RouteOutput
	s.mu.Unlock()

	if !still {
		s.log.Debug("left output view before raster load")
		return
	}
	s.ShowRaster(ctx, s.client.URL(backend.PathTif))
}

func (s *Session) paintOutput(ctx context.Context) error {
	data, _, err := s.client.Output(ctx)
	if err != nil {
		return err
	}
	img, format, err := decoder.Image(data)
	if err != nil {
		return err
	}
	s.log.WithField("format", format).Debug("output image decoded")
	return raster.Paint(s.output, raster.FromImage(img))
}

// ShowRaster starts a load cycle for src on the raster surface. The cycle
// outlives ctx's cancellation so request-scoped callers can return early.
func (s *Session) ShowRaster(ctx context.Context, src string) *loader.Cycle {
	return s.raster.Load(context.WithoutCancel(ctx), src)
}

// Close stops any running load cycle.
func (s *Session) Close() {
	s.raster.Close()
}
