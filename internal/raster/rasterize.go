package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"cropmap-viewer/internal/surface"
)

// Rasterize expands a decoded raster into an opaque RGBA pixel buffer.
//
// Samples are read in groups of r.Stride(); the first three samples of each
// group become R, G and B, clamped to 0..255, and alpha is forced to 255.
// A trailing incomplete group is dropped and complete groups past
// Width*Height are ignored, so the output is always exactly Width*Height*4
// bytes.
func Rasterize(r DecodedRaster) (PixelBuffer, error) {
	if r.Width <= 0 || r.Height <= 0 || r.Width > math.MaxInt/4/r.Height {
		return PixelBuffer{}, &RenderError{
			Op:  fmt.Sprintf("rasterize %dx%d", r.Width, r.Height),
			Err: ErrBadDimensions,
		}
	}
	stride := r.Stride()
	if stride < 3 {
		return PixelBuffer{}, &RenderError{
			Op:  fmt.Sprintf("rasterize %d channels", stride),
			Err: ErrTooFewChannels,
		}
	}

	n := r.Width * r.Height
	groups := len(r.Samples) / stride
	if groups < n {
		return PixelBuffer{}, &RenderError{
			Op:  fmt.Sprintf("rasterize %dx%d from %d samples", r.Width, r.Height, len(r.Samples)),
			Err: ErrShortRaster,
		}
	}

	buf := NewPixelBuffer(r.Width, r.Height)
	dst := buf.Pix
	src := r.Samples
	for i := 0; i < n; i++ {
		si := i * stride
		di := i * 4
		dst[di] = clamp8(src[si])
		dst[di+1] = clamp8(src[si+1])
		dst[di+2] = clamp8(src[si+2])
		dst[di+3] = 255
	}
	return buf, nil
}

// FromImage converts a decoded image resource into an opaque pixel buffer.
// Transparent regions are composited over black.
func FromImage(img image.Image) PixelBuffer {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Over)
	}

	buf := NewPixelBuffer(b.Dx(), b.Dy())
	copy(buf.Pix, rgba.Pix)
	for i := 3; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = 255
	}
	return buf
}

// Paint resizes s to the buffer's dimensions and blits it in one call.
// A nil or unmounted surface is left untouched.
func Paint(s *surface.Surface, buf PixelBuffer) error {
	if s == nil || !s.Mounted() {
		return &RenderError{Op: "paint", Err: ErrSurfaceUnavailable}
	}
	if err := s.Paint(buf.Width, buf.Height, buf.Pix); err != nil {
		return &RenderError{Op: "paint", Err: err}
	}
	return nil
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
