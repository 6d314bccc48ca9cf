// Package viewer serves the session's state and surfaces over HTTP so a
// browser on the same machine can follow the flow.
package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"cropmap-viewer/internal/backend"
	"cropmap-viewer/internal/blob"
	"cropmap-viewer/internal/export"
	"cropmap-viewer/internal/surface"
	"cropmap-viewer/internal/workflow"
)

const maxUploadBytes = 256 << 20

type (
	// CycleState describes a raster load cycle.
	CycleState struct {
		ID     uint64 `json:"id"`
		Source string `json:"source"`
		State  string `json:"state"`
		Error  string `json:"error,omitempty"`
	}

	// SurfaceState reports whether a surface is mounted and its size.
	SurfaceState struct {
		Mounted bool `json:"mounted"`
		Width   int  `json:"width"`
		Height  int  `json:"height"`
	}

	// StateResponse is the body of GET /api/state.
	StateResponse struct {
		Route       string                  `json:"route"`
		MapURL      string                  `json:"map_url,omitempty"`
		OutputError string                  `json:"output_error,omitempty"`
		Raster      *CycleState             `json:"raster,omitempty"`
		Surfaces    map[string]SurfaceState `json:"surfaces"`
	}

	// UploadResponse points at the viewer URL of the uploaded map.
	UploadResponse struct {
		MapURL string `json:"map_url"`
	}

	// SourceRequest is the body of POST /api/source.
	SourceRequest struct {
		URL string `json:"url"`
	}

	// ErrorResponse carries a failure message.
	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// NewRouter wires the viewer API for s.
func NewRouter(s *workflow.Session) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowLocalOrigin,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", HandleState(s))
		r.Post("/upload", HandleUpload(s))
		r.Post("/process", HandleProcess(s))
		r.Post("/source", HandleSource(s))
	})
	r.Get("/blob/{id}", HandleBlob(s.Blobs()))
	r.Get("/surface/{file}", HandleSurface(s))
	return r
}

func allowLocalOrigin(r *http.Request, origin string) bool {
	if origin == "" {
		return false
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

// backendStatus maps a backend failure onto the status the viewer reports.
func backendStatus(err error) int {
	var ne *backend.NetworkError
	if errors.As(err, &ne) && ne.StatusCode >= 400 && ne.StatusCode < 500 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// HandleState reports the current route, map and raster cycle.
func HandleState(s *workflow.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StateResponse{
			Route:  string(s.Route()),
			MapURL: s.MapURL(),
			Surfaces: map[string]SurfaceState{
				"raster": surfaceState(s.RasterSurface()),
				"output": surfaceState(s.OutputSurface()),
			},
		}
		if err := s.OutputErr(); err != nil {
			resp.OutputError = err.Error()
		}
		if c := s.Loader().Latest(); c != nil {
			cs := &CycleState{ID: c.ID, Source: c.Source, State: c.State().String()}
			if err := c.Err(); err != nil {
				cs.Error = err.Error()
			}
			resp.Raster = cs
		}
		render.JSON(w, r, resp)
	}
}

func surfaceState(sf *surface.Surface) SurfaceState {
	w, h := sf.Size()
	return SurfaceState{Mounted: sf.Mounted(), Width: w, Height: h}
}

// HandleUpload forwards a multipart shapefile archive to the backend.
func HandleUpload(s *workflow.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile(backend.UploadField)
		if err != nil {
			logrus.WithError(err).Warn("upload without shapefile field")
			fail(w, r, http.StatusBadRequest, err)
			return
		}
		defer file.Close()

		mapURL, err := s.Upload(r.Context(), header.Filename, file)
		if err != nil {
			fail(w, r, backendStatus(err), err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, UploadResponse{MapURL: "/blob/" + blob.ID(mapURL)})
	}
}

// HandleProcess runs processing and enters the output view.
func HandleProcess(s *workflow.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.Proceed(r.Context())
		switch {
		case errors.Is(err, workflow.ErrNoMap):
			fail(w, r, http.StatusConflict, err)
			return
		case err != nil:
			fail(w, r, backendStatus(err), err)
			return
		}
		HandleState(s)(w, r)
	}
}

// HandleSource starts a raster load cycle for the posted URL.
func HandleSource(s *workflow.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Error("Failed to decode request")
			fail(w, r, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			fail(w, r, http.StatusBadRequest, errors.New("url is required"))
			return
		}
		if !s.Backend().SameOrigin(req.URL) {
			logrus.WithField("url", req.URL).Warn("rejected source outside the backend")
			fail(w, r, http.StatusBadRequest, errors.New("url must point at the backend"))
			return
		}

		c := s.ShowRaster(r.Context(), req.URL)
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, CycleState{ID: c.ID, Source: c.Source, State: c.State().String()})
	}
}

// HandleBlob serves an uploaded map document.
func HandleBlob(store *blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := store.Get(blob.Scheme + chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "blob not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", b.ContentType)
		w.Write(b.Data)
	}
}

// HandleSurface encodes a surface as raster.png, output.webp and so on.
// The optional max query parameter bounds the longer side.
func HandleSurface(s *workflow.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		format := strings.TrimPrefix(path.Ext(file), ".")
		name := strings.TrimSuffix(file, path.Ext(file))

		var sf *surface.Surface
		switch name {
		case "raster":
			sf = s.RasterSurface()
		case "output":
			sf = s.OutputSurface()
		default:
			http.NotFound(w, r)
			return
		}
		if !export.Known(format) {
			http.Error(w, "unsupported format", http.StatusBadRequest)
			return
		}

		snap := sf.Snapshot()
		if snap == nil {
			http.Error(w, "surface is blank", http.StatusNotFound)
			return
		}
		img := export.Downsample(snap, 0)
		if v := r.URL.Query().Get("max"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "invalid max", http.StatusBadRequest)
				return
			}
			img = export.Downsample(snap, n)
		}

		var buf bytes.Buffer
		if err := export.Encode(&buf, img, format); err != nil {
			logrus.WithError(err).WithField("surface", name).Error("encode failed")
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", export.ContentType(format))
		w.Header().Set("Cache-Control", "no-store")
		w.Write(buf.Bytes())
	}
}

// Serve runs the router on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logrus.WithField("addr", addr).Info("viewer listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	logrus.Info("viewer stopped")
	return nil
}
