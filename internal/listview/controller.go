package listview

import (
	"context"
	"sync"
)

// Fetcher renders a state, typically Adapter.View bound to a clock.
type Fetcher[R any] func(ctx context.Context, st State) (ViewResult[R], error)

// Controller is an interactive list view. Every state change issues a new
// fetch; only the response to the latest change is applied, so a slow
// earlier response can never overwrite a newer one.
type Controller[R any] struct {
	fetch    Fetcher[R]
	onChange func(ViewResult[R], error)

	seq Sequencer
	wg  sync.WaitGroup

	mu     sync.Mutex
	state  State
	result ViewResult[R]
	err    error
}

// NewController starts from initial. onChange may be nil.
func NewController[R any](initial State, fetch Fetcher[R], onChange func(ViewResult[R], error)) *Controller[R] {
	return &Controller[R]{fetch: fetch, onChange: onChange, state: initial}
}

// Dispatch applies change to the current state and fetches the new view in
// the background.
func (c *Controller[R]) Dispatch(ctx context.Context, change func(State) State) {
	c.mu.Lock()
	if change != nil {
		c.state = change(c.state)
	}
	st := c.state
	c.mu.Unlock()

	token := c.seq.Issue()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.fetch(ctx, st)
		c.seq.Apply(token, func() {
			c.mu.Lock()
			c.result, c.err = res, err
			// Adopt the clamped page unless the state moved on meanwhile.
			if err == nil && c.state.Window == st.Window && c.state.Signature() == st.Signature() {
				c.state.Window.Page = res.State.Window.Page
			}
			c.mu.Unlock()
			if c.onChange != nil {
				c.onChange(res, err)
			}
		})
	}()
}

// Refresh refetches the current state.
func (c *Controller[R]) Refresh(ctx context.Context) {
	c.Dispatch(ctx, nil)
}

// Snapshot returns the current state and the last applied result.
func (c *Controller[R]) Snapshot() (State, ViewResult[R], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.result, c.err
}

// Wait blocks until every issued fetch has returned.
func (c *Controller[R]) Wait() {
	c.wg.Wait()
}
