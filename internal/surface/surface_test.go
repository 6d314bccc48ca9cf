package surface

import (
	"errors"
	"sync"
	"testing"
)

func TestPaint_Unmounted(t *testing.T) {
	s := New()
	err := s.Paint(1, 1, []uint8{1, 2, 3, 255})
	if !errors.Is(err, ErrUnmounted) {
		t.Fatalf("Paint() error = %v, want ErrUnmounted", err)
	}
	if s.Snapshot() != nil {
		t.Error("Snapshot() should be nil for a surface that was never painted")
	}
}

func TestPaint_ResizesAndCopies(t *testing.T) {
	s := New()
	s.Mount()

	if err := s.Paint(2, 1, []uint8{255, 0, 0, 255, 0, 255, 0, 255}); err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}
	if w, h := s.Size(); w != 2 || h != 1 {
		t.Fatalf("Size() = %dx%d, want 2x1", w, h)
	}

	if err := s.Paint(1, 2, []uint8{9, 9, 9, 255, 7, 7, 7, 255}); err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}
	if w, h := s.Size(); w != 1 || h != 2 {
		t.Fatalf("Size() = %dx%d, want 1x2", w, h)
	}

	img := s.Snapshot()
	if img == nil {
		t.Fatal("Snapshot() returned nil")
	}
	want := []uint8{9, 9, 9, 255, 7, 7, 7, 255}
	for i, v := range want {
		if img.Pix[i] != v {
			t.Fatalf("Pix[%d] = %d, want %d", i, img.Pix[i], v)
		}
	}
	if g := s.Generation(); g != 2 {
		t.Errorf("Generation() = %d, want 2", g)
	}
}

func TestPaint_RejectsWrongLength(t *testing.T) {
	s := New()
	s.Mount()
	if err := s.Paint(2, 2, make([]uint8, 4)); err == nil {
		t.Fatal("Paint() should reject a short buffer")
	}
	if s.Generation() != 0 {
		t.Error("rejected paint must not bump the generation")
	}
}

func TestPaint_RejectsOverflowingSize(t *testing.T) {
	s := New()
	s.Mount()
	if err := s.Paint(1<<32, 1<<32, nil); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Paint() error = %v, want ErrTooLarge", err)
	}
	if w, h := s.Size(); w != 0 || h != 0 {
		t.Errorf("Size() = %dx%d after rejected paint", w, h)
	}
	if s.Snapshot() != nil {
		t.Error("rejected paint left a frame behind")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New()
	s.Mount()
	if err := s.Paint(1, 1, []uint8{10, 20, 30, 255}); err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}
	img := s.Snapshot()
	img.Pix[0] = 99

	if again := s.Snapshot(); again.Pix[0] != 10 {
		t.Errorf("surface changed through snapshot: got %d, want 10", again.Pix[0])
	}
}

func TestUnmount_Destroys(t *testing.T) {
	s := New()
	s.Mount()
	if err := s.Paint(1, 1, []uint8{1, 1, 1, 255}); err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}
	s.Unmount()
	if s.Mounted() {
		t.Error("Mounted() should be false after Unmount")
	}
	if w, h := s.Size(); w != 0 || h != 0 {
		t.Errorf("Size() after Unmount = %dx%d, want 0x0", w, h)
	}
}

func TestConcurrentPaintAndSnapshot(t *testing.T) {
	s := New()
	s.Mount()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint8) {
			defer wg.Done()
			pix := []uint8{v, v, v, 255, v, v, v, 255}
			if err := s.Paint(2, 1, pix); err != nil {
				t.Errorf("Paint() failed: %v", err)
			}
		}(uint8(i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if img := s.Snapshot(); img != nil && img.Pix[0] != img.Pix[4] {
				t.Error("Snapshot() observed a partially painted frame")
			}
		}()
	}
	wg.Wait()
}
