// Package loader runs image load cycles: fetch the encoded bytes, decode
// them, rasterize and paint the result onto a surface.
//
// Every call to Load starts a new cycle with a larger ID. Only the most
// recently started cycle may paint; a cycle that finishes after a newer one
// has started ends as Superseded and leaves the surface alone.
package loader

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"cropmap-viewer/internal/decoder"
	"cropmap-viewer/internal/raster"
	"cropmap-viewer/internal/surface"
)

// Fetcher retrieves the encoded bytes behind a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Loader owns a surface and the cycles that paint it.
type Loader struct {
	fetcher Fetcher
	decoder decoder.Decoder
	surface *surface.Surface
	log     logrus.FieldLogger

	mu     sync.Mutex // guards seq, latest, cancel and every surface commit
	seq    uint64
	latest *Cycle
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ld *Loader) { ld.log = l }
}

// New returns a loader that paints onto s.
func New(f Fetcher, d decoder.Decoder, s *surface.Surface, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		decoder: d,
		surface: s,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Surface returns the surface the loader paints.
func (l *Loader) Surface() *surface.Surface {
	return l.surface
}

// Load starts a cycle for src and makes it the latest. The previous cycle's
// context is cancelled; whatever it produces afterwards is discarded.
func (l *Loader) Load(ctx context.Context, src string) *Cycle {
	l.mu.Lock()
	l.seq++
	c := newCycle(l.seq, src)
	if l.cancel != nil {
		l.cancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	l.latest = c
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		l.run(cctx, c)
	}()
	return c
}

// Latest returns the most recently started cycle, or nil.
func (l *Loader) Latest() *Cycle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

// Wait blocks until the latest cycle finishes or ctx is done. Cycles
// started while waiting are waited for as well.
func (l *Loader) Wait(ctx context.Context) (*Cycle, error) {
	for {
		c := l.Latest()
		if c == nil {
			return nil, nil
		}
		select {
		case <-c.Done():
		case <-ctx.Done():
			return c, ctx.Err()
		}
		if l.Latest() == c {
			return c, nil
		}
	}
}

// Close cancels the running cycle and waits for every cycle goroutine.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Loader) isLatest(c *Cycle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest == c
}

func (l *Loader) run(ctx context.Context, c *Cycle) {
	log := l.log.WithFields(logrus.Fields{
		"cycle":  c.ID,
		"source": c.Source,
	})

	c.set(Fetching)
	data, err := l.fetcher.Fetch(ctx, c.Source)
	if err != nil {
		l.fail(c, log, Fetching, err)
		return
	}
	if !l.isLatest(c) {
		l.supersede(c, log, Fetching)
		return
	}

	c.set(Decoding)
	r, err := l.decoder.Decode(data)
	if err != nil {
		l.fail(c, log, Decoding, err)
		return
	}
	if !l.isLatest(c) {
		l.supersede(c, log, Decoding)
		return
	}

	c.set(Rendering)
	buf, err := raster.Rasterize(r)
	if err != nil {
		l.fail(c, log, Rendering, err)
		return
	}
	l.commit(c, log, buf)
}

// commit is the only place a cycle touches the surface.
func (l *Loader) commit(c *Cycle, log logrus.FieldLogger, buf raster.PixelBuffer) {
	l.mu.Lock()
	if l.latest != c {
		l.mu.Unlock()
		l.supersede(c, log, Rendering)
		return
	}
	err := raster.Paint(l.surface, buf)
	l.mu.Unlock()

	if err != nil {
		l.fail(c, log, Rendering, err)
		return
	}
	log.WithFields(logrus.Fields{
		"width":  buf.Width,
		"height": buf.Height,
	}).Info("raster rendered")
	c.finish(Done, nil)
}

func (l *Loader) fail(c *Cycle, log logrus.FieldLogger, at State, err error) {
	if !l.isLatest(c) {
		l.supersede(c, log, at)
		return
	}
	log.WithError(err).WithField("state", at).Error("load failed")
	c.finish(Errored, err)
}

func (l *Loader) supersede(c *Cycle, log logrus.FieldLogger, at State) {
	log.WithField("state", at).Debug("stale result discarded")
	c.finish(Superseded, nil)
}
