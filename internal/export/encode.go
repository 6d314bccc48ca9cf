// Package export writes surface snapshots to disk.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// Supported output formats.
const (
	FormatWebP = "webp"
	FormatTGA  = "tga"
	FormatPNG  = "png"
)

// ErrUnknownFormat is returned for a format name Encode does not handle.
var ErrUnknownFormat = errors.New("export: unknown format")

// Formats lists every format Encode accepts.
var Formats = []string{FormatWebP, FormatTGA, FormatPNG}

// ParseFormats splits a comma separated list such as "webp,png".
// Duplicates are dropped; an empty list yields webp.
func ParseFormats(s string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		if !Known(f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		out = []string{FormatWebP}
	}
	return out, nil
}

// Known reports whether format is supported.
func Known(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type served for format.
func ContentType(format string) string {
	switch format {
	case FormatWebP:
		return "image/webp"
	case FormatTGA:
		return "image/x-tga"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case FormatWebP:
		err = nativewebp.Encode(w, img, nil)
	case FormatTGA:
		err = tga.Encode(w, img)
	case FormatPNG:
		err = png.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("export: encode %s: %w", format, err)
	}
	return nil
}

// WriteFiles encodes img once per format into dir/name.<format> and returns
// the file names written, relative to dir.
func WriteFiles(dir, name string, img image.Image, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("export: mkdir %s: %w", dir, err)
	}

	var written []string
	for _, format := range formats {
		file := name + "." + format
		if err := writeFile(filepath.Join(dir, file), img, format); err != nil {
			return written, err
		}
		written = append(written, file)
	}
	return written, nil
}

func writeFile(path string, img image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
