// Package decoder turns encoded image bytes into rasters and images.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/tiff"

	"cropmap-viewer/internal/raster"
)

// Decoder parses an encoded image into a DecodedRaster.
type Decoder interface {
	Decode(data []byte) (raster.DecodedRaster, error)
}

// Causes wrapped by DecodeError.
var (
	ErrEmpty         = errors.New("empty input")
	ErrNoDimensions  = errors.New("image has no pixels")
	ErrNotImage      = errors.New("not a recognised image format")
	ErrUnexpectedEOF = errors.New("truncated image data")
)

// DecodeError reports bytes that are not a valid encoded image.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoder: %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TIFF decodes baseline TIFF files via golang.org/x/image/tiff.
// The result always has three interleaved 8-bit channels.
type TIFF struct{}

// Decode implements Decoder.
func (TIFF) Decode(data []byte) (raster.DecodedRaster, error) {
	if len(data) == 0 {
		return raster.DecodedRaster{}, &DecodeError{Format: "tiff", Err: ErrEmpty}
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return raster.DecodedRaster{}, &DecodeError{Format: "tiff", Err: err}
	}
	return Samples(img)
}

// Samples flattens img into interleaved RGB samples. Gray images are
// expanded, 16-bit channels are reduced to 8 bits and alpha is dropped
// after un-premultiplying.
func Samples(img image.Image) (raster.DecodedRaster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return raster.DecodedRaster{}, &DecodeError{Format: "raster", Err: ErrNoDimensions}
	}

	out := raster.DecodedRaster{
		Width:    w,
		Height:   h,
		Channels: 3,
		Samples:  make([]int, w*h*3),
	}
	s := out.Samples

	switch m := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride:]
			for x := 0; x < w; x++ {
				i := (y*w + x) * 3
				s[i] = int(row[x*4])
				s[i+1] = int(row[x*4+1])
				s[i+2] = int(row[x*4+2])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride:]
			for x := 0; x < w; x++ {
				i := (y*w + x) * 3
				v := int(row[x])
				s[i], s[i+1], s[i+2] = v, v, v
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride:]
			for x := 0; x < w; x++ {
				i := (y*w + x) * 3
				v := int(row[x*2]) // high byte
				s[i], s[i+1], s[i+2] = v, v, v
			}
		}
	default:
		// RGBA, RGBA64, NRGBA64, Paletted and anything else
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				i := (y*w + x) * 3
				s[i] = int(c.R >> 8)
				s[i+1] = int(c.G >> 8)
				s[i+2] = int(c.B >> 8)
			}
		}
	}
	return out, nil
}
