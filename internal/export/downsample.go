package export

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"cropmap-viewer/internal/decoder"
)

// Downsample shrinks img so that neither side exceeds maxSize, keeping the
// aspect ratio. Scaling runs on premultiplied alpha so transparent edges do
// not darken. Images that already fit are returned as NRGBA unchanged.
func Downsample(img image.Image, maxSize int) *image.NRGBA {
	src := decoder.ToNRGBA(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return src
	}

	dw, dh := maxSize, maxSize
	if w > h {
		dh = max(1, h*maxSize/w)
	} else if h > w {
		dw = max(1, w*maxSize/h)
	}

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(src.Pix[si+3]) / 255
			premul.Pix[di] = uint8(float64(src.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(src.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(src.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = src.Pix[si+3]
		}
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), premul, b, xdraw.Src, nil)

	out := image.NewNRGBA(scaled.Bounds())
	for i := 0; i < len(scaled.Pix); i += 4 {
		a := float64(scaled.Pix[i+3])
		if a > 1 {
			inv := 255 / a
			out.Pix[i] = clamp8(float64(scaled.Pix[i]) * inv)
			out.Pix[i+1] = clamp8(float64(scaled.Pix[i+1]) * inv)
			out.Pix[i+2] = clamp8(float64(scaled.Pix[i+2]) * inv)
		}
		out.Pix[i+3] = scaled.Pix[i+3]
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
