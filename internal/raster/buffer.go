package raster

import (
	"errors"
	"fmt"
)

// DecodedRaster is the decoder's output: dimensions plus a flat sample
// sequence with Channels interleaved samples per pixel.
type DecodedRaster struct {
	Width    int
	Height   int
	Channels int   // samples per pixel; 0 means RGB (3)
	Samples  []int // may hold values outside 0..255, clamped on rasterize
}

// Stride returns the number of samples per pixel.
func (r DecodedRaster) Stride() int {
	if r.Channels <= 0 {
		return 3
	}
	return r.Channels
}

// PixelBuffer holds a rasterized frame as flat RGBA bytes, row-major.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8 // RGBA interleaved, len = W*H*4
}

// NewPixelBuffer allocates a zeroed buffer for a w×h frame.
func NewPixelBuffer(w, h int) PixelBuffer {
	return PixelBuffer{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*4),
	}
}

// Sentinel causes carried by RenderError.
var (
	ErrSurfaceUnavailable = errors.New("drawing surface unavailable")
	ErrShortRaster        = errors.New("not enough samples for raster dimensions")
	ErrBadDimensions      = errors.New("raster dimensions must be positive")
	ErrTooFewChannels     = errors.New("raster needs at least 3 channels")
)

// RenderError reports a failure to turn a raster into a painted frame.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("raster: %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
