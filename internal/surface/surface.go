// Package surface provides the persistent drawing target that rasterized
// frames are painted into.
package surface

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"
)

var (
	// ErrUnmounted is returned by Paint before Mount or after Unmount.
	ErrUnmounted = errors.New("surface: not mounted")
	// ErrTooLarge is returned by Paint for sizes whose buffer overflows int.
	ErrTooLarge = errors.New("surface: size too large")
)

// Surface is a resizable RGBA bitmap backed by a gg.Pixmap.
// All mutation goes through Paint, which swaps in a complete frame under the
// lock, so readers only ever see whole frames.
type Surface struct {
	mu         sync.RWMutex
	mounted    bool
	pixmap     *gg.Pixmap // nil until the first paint
	generation uint64
}

// New returns an unmounted surface.
func New() *Surface {
	return &Surface{}
}

// Mount makes the surface available for painting. The surface starts blank.
func (s *Surface) Mount() {
	s.mu.Lock()
	s.mounted = true
	s.mu.Unlock()
}

// Unmount destroys the backing pixmap; later paints fail with ErrUnmounted.
func (s *Surface) Unmount() {
	s.mu.Lock()
	s.mounted = false
	s.pixmap = nil
	s.mu.Unlock()
}

// Mounted reports whether the surface can be painted.
func (s *Surface) Mounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// Paint resizes the surface to w×h and copies pix (RGBA, len w*h*4) into it.
func (s *Surface) Paint(w, h int, pix []uint8) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("surface: invalid size %dx%d", w, h)
	}
	if w > math.MaxInt/4/h {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, w, h)
	}
	if len(pix) != w*h*4 {
		return fmt.Errorf("surface: buffer is %d bytes, want %d", len(pix), w*h*4)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	if s.pixmap == nil || s.pixmap.Width() != w || s.pixmap.Height() != h {
		s.pixmap = gg.NewPixmap(w, h)
	}
	copy(s.pixmap.Data(), pix)
	s.generation++
	return nil
}

// Size returns the current dimensions, zero while blank.
func (s *Surface) Size() (w, h int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pixmap == nil {
		return 0, 0
	}
	return s.pixmap.Width(), s.pixmap.Height()
}

// Generation counts successful paints since creation.
func (s *Surface) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns a copy of the current frame, or nil if nothing has been
// painted yet.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pixmap == nil {
		return nil
	}
	return s.pixmap.ToImage()
}
