// Package backend talks to the shapefile-processing server.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Endpoint paths exposed by the processing server.
const (
	PathUploadMarkers     = "/uploadMarkers"
	PathProcessShapefiles = "/processShapefiles"
	PathOutput            = "/Output"
	PathTif               = "/tif"

	// UploadField is the multipart form field carrying the zip archive.
	UploadField = "shapefile"
)

// Client issues single-shot requests against the processing server.
// It does not retry and sets no timeout of its own.
type Client struct {
	base *url.URL
	http *http.Client
	log  logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend: base url %q must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: http.DefaultClient,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the absolute URL of an endpoint path.
func (c *Client) URL(path string) string {
	return c.resolve(path).String()
}

// SameOrigin reports whether ref, resolved against the base URL, points at
// the backend's scheme and host.
func (c *Client) SameOrigin(ref string) bool {
	u := c.resolve(ref)
	return u.Scheme == c.base.Scheme && strings.EqualFold(u.Host, c.base.Host)
}

func (c *Client) resolve(ref string) *url.URL {
	r, err := url.Parse(ref)
	if err != nil {
		return &url.URL{Path: ref}
	}
	if r.IsAbs() {
		return r
	}
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(r.Path, "/")
	u.RawQuery = r.RawQuery
	return &u
}

// UploadMarkers posts a zipped shapefile and returns the HTML map document
// the server renders for it.
func (c *Client) UploadMarkers(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(UploadField, filename)
	if err != nil {
		return nil, fmt.Errorf("backend: build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend: build upload form: %w", err)
	}

	target := c.URL(PathUploadMarkers)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, &NetworkError{Op: "upload markers", URL: target, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, _, err := c.do(req, "upload markers")
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"file":  filename,
		"bytes": len(data),
	}).Info("shapefile uploaded")
	return data, nil
}

// ProcessShapefiles asks the server to run processing. The body is ignored.
func (c *Client) ProcessShapefiles(ctx context.Context) error {
	_, _, err := c.get(ctx, PathProcessShapefiles, "process shapefiles")
	return err
}

// Output fetches the rendered output image and its content type.
func (c *Client) Output(ctx context.Context) ([]byte, string, error) {
	data, ct, err := c.get(ctx, PathOutput, "fetch output")
	if err != nil {
		return nil, "", err
	}
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, ct, &NetworkError{
			Op:  "fetch output",
			URL: c.URL(PathOutput),
			Err: fmt.Errorf("unexpected content type %q", ct),
		}
	}
	return data, ct, nil
}

// Tif fetches the raw TIFF raster.
func (c *Client) Tif(ctx context.Context) ([]byte, error) {
	data, _, err := c.get(ctx, PathTif, "fetch tif")
	return data, err
}

// Fetch GETs rawURL, resolving relative references against the base URL.
// It satisfies the loader's Fetcher.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	data, _, err := c.get(ctx, rawURL, "fetch")
	return data, err
}

func (c *Client) get(ctx context.Context, ref, op string) ([]byte, string, error) {
	target := c.resolve(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", &NetworkError{Op: op, URL: target, Err: err}
	}
	return c.do(req, op)
}

func (c *Client) do(req *http.Request, op string) ([]byte, string, error) {
	target := req.URL.String()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", &NetworkError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, "", &NetworkError{Op: op, URL: target, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &NetworkError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	c.log.WithFields(logrus.Fields{
		"op":     op,
		"url":    target,
		"status": resp.StatusCode,
		"bytes":  len(data),
	}).Debug("request done")
	return data, resp.Header.Get("Content-Type"), nil
}
