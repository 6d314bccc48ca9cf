package raster

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"cropmap-viewer/internal/surface"
)

func TestRasterize_TwoPixelRGB(t *testing.T) {
	buf, err := Rasterize(DecodedRaster{
		Width:   2,
		Height:  1,
		Samples: []int{255, 0, 0, 0, 255, 0},
	})
	if err != nil {
		t.Fatalf("Rasterize() failed: %v", err)
	}

	want := []uint8{255, 0, 0, 255, 0, 255, 0, 255}
	if len(buf.Pix) != len(want) {
		t.Fatalf("len(Pix) = %d, want %d", len(buf.Pix), len(want))
	}
	for i := range want {
		if buf.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
		}
	}
}

func TestRasterize_LengthAndAlpha(t *testing.T) {
	sizes := [][2]int{{1, 1}, {3, 2}, {7, 5}, {16, 16}}
	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		samples := make([]int, w*h*3)
		for i := range samples {
			samples[i] = (i * 37) % 256
		}

		buf, err := Rasterize(DecodedRaster{Width: w, Height: h, Channels: 3, Samples: samples})
		if err != nil {
			t.Fatalf("Rasterize(%dx%d) failed: %v", w, h, err)
		}
		if len(buf.Pix) != w*h*4 {
			t.Fatalf("Rasterize(%dx%d) len = %d, want %d", w, h, len(buf.Pix), w*h*4)
		}
		for i := 0; i < w*h; i++ {
			if buf.Pix[i*4+3] != 255 {
				t.Fatalf("Rasterize(%dx%d) alpha at pixel %d = %d", w, h, i, buf.Pix[i*4+3])
			}
			for c := 0; c < 3; c++ {
				if got, want := int(buf.Pix[i*4+c]), samples[i*3+c]; got != want {
					t.Fatalf("Rasterize(%dx%d) pixel %d channel %d = %d, want %d", w, h, i, c, got, want)
				}
			}
		}
	}
}

func TestRasterize_Clamps(t *testing.T) {
	buf, err := Rasterize(DecodedRaster{
		Width:   2,
		Height:  1,
		Samples: []int{-10, 256, 1000, 300, -1, 128},
	})
	if err != nil {
		t.Fatalf("Rasterize() failed: %v", err)
	}
	want := []uint8{0, 255, 255, 255, 255, 0, 128, 255}
	for i := range want {
		if buf.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
		}
	}
}

func TestRasterize_DropsTrailingPartialGroup(t *testing.T) {
	tests := []struct {
		name    string
		samples []int
	}{
		{"one extra", []int{1, 2, 3, 4, 5, 6, 7}},
		{"two extra", []int{1, 2, 3, 4, 5, 6, 7, 8}},
		{"surplus group", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Rasterize(DecodedRaster{Width: 2, Height: 1, Samples: tt.samples})
			if err != nil {
				t.Fatalf("Rasterize() failed: %v", err)
			}
			want := []uint8{1, 2, 3, 255, 4, 5, 6, 255}
			if len(buf.Pix) != len(want) {
				t.Fatalf("len(Pix) = %d, want %d", len(buf.Pix), len(want))
			}
			for i := range want {
				if buf.Pix[i] != want[i] {
					t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
				}
			}
		})
	}
}

func TestRasterize_FourChannelInput(t *testing.T) {
	buf, err := Rasterize(DecodedRaster{
		Width:    2,
		Height:   1,
		Channels: 4,
		Samples:  []int{10, 20, 30, 0, 40, 50, 60, 128},
	})
	if err != nil {
		t.Fatalf("Rasterize() failed: %v", err)
	}
	want := []uint8{10, 20, 30, 255, 40, 50, 60, 255}
	for i := range want {
		if buf.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
		}
	}
}

func TestRasterize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   DecodedRaster
		want error
	}{
		{"zero width", DecodedRaster{Width: 0, Height: 1, Samples: []int{1, 2, 3}}, ErrBadDimensions},
		{"negative height", DecodedRaster{Width: 1, Height: -1, Samples: []int{1, 2, 3}}, ErrBadDimensions},
		{"overflowing area", DecodedRaster{Width: 1 << 32, Height: 1 << 32, Samples: []int{1, 2, 3}}, ErrBadDimensions},
		{"buffer too large", DecodedRaster{Width: math.MaxInt / 2, Height: 3, Samples: []int{1, 2, 3}}, ErrBadDimensions},
		{"short", DecodedRaster{Width: 2, Height: 2, Samples: []int{1, 2, 3, 4, 5, 6}}, ErrShortRaster},
		{"gray", DecodedRaster{Width: 1, Height: 1, Channels: 1, Samples: []int{1}}, ErrTooFewChannels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rasterize(tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Rasterize() error = %v, want %v", err, tt.want)
			}
			var re *RenderError
			if !errors.As(err, &re) {
				t.Errorf("Rasterize() error %T is not a *RenderError", err)
			}
		})
	}
}

func TestPaint_UnavailableSurface(t *testing.T) {
	buf := NewPixelBuffer(1, 1)

	if err := Paint(nil, buf); !errors.Is(err, ErrSurfaceUnavailable) {
		t.Errorf("Paint(nil) error = %v, want ErrSurfaceUnavailable", err)
	}

	s := surface.New()
	if err := Paint(s, buf); !errors.Is(err, ErrSurfaceUnavailable) {
		t.Errorf("Paint(unmounted) error = %v, want ErrSurfaceUnavailable", err)
	}
	if s.Generation() != 0 {
		t.Error("unmounted surface must not be painted")
	}
}

func TestPaint_Mounted(t *testing.T) {
	s := surface.New()
	s.Mount()

	buf, err := Rasterize(DecodedRaster{Width: 1, Height: 2, Samples: []int{1, 2, 3, 4, 5, 6}})
	if err != nil {
		t.Fatalf("Rasterize() failed: %v", err)
	}
	if err := Paint(s, buf); err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}
	if w, h := s.Size(); w != 1 || h != 2 {
		t.Errorf("surface size = %dx%d, want 1x2", w, h)
	}
}

func TestFromImage_Opaque(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	buf := FromImage(img)
	want := []uint8{200, 100, 50, 255, 0, 0, 0, 255}
	for i := range want {
		if buf.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
		}
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.SetRGBA(5, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img.SetRGBA(6, 5, color.RGBA{R: 4, G: 5, B: 6, A: 255})

	buf := FromImage(img)
	if buf.Width != 2 || buf.Height != 1 {
		t.Fatalf("FromImage() size = %dx%d, want 2x1", buf.Width, buf.Height)
	}
	want := []uint8{1, 2, 3, 255, 4, 5, 6, 255}
	for i := range want {
		if buf.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
		}
	}
}
