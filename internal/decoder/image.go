package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

type decodeFunc func(io.Reader) (image.Image, error)

// Formats are picked by magic bytes rather than through image.Decode: TGA
// has no signature, so it is only tried when nothing else matches.
var formats = []struct {
	name   string
	match  func([]byte) bool
	decode decodeFunc
}{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{"jpeg", prefix("\xff\xd8"), jpeg.Decode},
	{"gif", prefix("GIF8"), gif.Decode},
	{"bmp", prefix("BM"), bmp.Decode},
	{"tiff", func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("II\x2a\x00")) || bytes.HasPrefix(b, []byte("MM\x00\x2a"))
	}, tiff.Decode},
	{"webp", func(b []byte) bool {
		return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}, webp.Decode},
}

func prefix(magic string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(magic)) }
}

// Sniff names the format of data, or "" when no signature matches.
func Sniff(data []byte) string {
	for _, f := range formats {
		if f.match(data) {
			return f.name
		}
	}
	return ""
}

// Image decodes a PNG, JPEG, GIF, BMP, TIFF, WebP or TGA resource and returns
// it as NRGBA along with the format name.
func Image(data []byte) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Format: "image", Err: ErrEmpty}
	}

	name, decode := "tga", decodeFunc(tga.Decode)
	for _, f := range formats {
		if f.match(data) {
			name, decode = f.name, f.decode
			break
		}
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		switch {
		case name == "tga":
			err = ErrNotImage
		case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
			err = ErrUnexpectedEOF
		}
		return nil, name, &DecodeError{Format: name, Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, name, &DecodeError{Format: name, Err: ErrNoDimensions}
	}
	return ToNRGBA(img), name, nil
}

// ToNRGBA converts any image to NRGBA format. NRGBA input is returned as is.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha: draw and set alpha to 255
		draw.Draw(dst, b, src, b.Min, draw.Src)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Pix[dst.PixOffset(x, y)+3] = 255
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				i := dst.PixOffset(x, y)
				dst.Pix[i] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = c.A
			}
		}
	}
	return dst
}
