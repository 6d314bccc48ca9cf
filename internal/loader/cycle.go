package loader

import "sync"

// Cycle is one fetch → decode → render pass for a single source.
type Cycle struct {
	ID     uint64
	Source string

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newCycle(id uint64, src string) *Cycle {
	return &Cycle{
		ID:     id,
		Source: src,
		state:  Idle,
		done:   make(chan struct{}),
	}
}

// State returns the current state.
func (c *Cycle) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the cycle to Errored, if any.
func (c *Cycle) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the cycle reaches a terminal state.
func (c *Cycle) Done() <-chan struct{} {
	return c.done
}

func (c *Cycle) set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Cycle) finish(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.err = err
	c.mu.Unlock()
	close(c.done)
}
