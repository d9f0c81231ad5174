package state

import (
	"sync"

	"github.com/google/uuid"
)

// Listener receives the state before and after an effective change.
type Listener func(prev, next State)

type subscription struct {
	id    uuid.UUID
	field Field // zero means every change
	fn    Listener
}

// Container holds the shared State and serializes all writers.
//
// Listeners run on the writer's goroutine after the container lock is
// released, in subscription order. A listener may call Patch again; the nested
// change is delivered before the outer notification loop continues.
type Container struct {
	mu      sync.Mutex
	current State
	subs    []subscription
}

// New returns a container seeded with initial. IsAuthenticated is derived from
// the initial token.
func New(initial State) *Container {
	return &Container{current: normalize(initial.clone())}
}

// Get returns a copy of the current state.
func (c *Container) Get() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.clone()
}

// Patch merges p into the current state and returns the resulting state.
// Listeners are notified only when the state actually changed.
func (c *Container) Patch(p Patch) State {
	c.mu.Lock()
	return c.commit(p)
}

// Update runs fn with the current state under the container lock and applies
// the patch it returns. An empty patch leaves the state untouched. Writers
// block until fn returns, so fn sees a state no other writer can change
// before its patch lands. fn must not call back into the container.
func (c *Container) Update(fn func(current State) Patch) State {
	c.mu.Lock()
	p := fn(c.current.clone())
	if p.Empty() {
		next := c.current.clone()
		c.mu.Unlock()
		return next
	}
	return c.commit(p)
}

// commit applies p with c.mu held, releases the lock and notifies listeners.
func (c *Container) commit(p Patch) State {
	prev := c.current
	next := p.apply(prev.clone())
	if equal(prev, next) {
		c.mu.Unlock()
		return next.clone()
	}
	c.current = next
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		if s.field != 0 && !Changed(s.field, prev, next) {
			continue
		}
		s.fn(prev.clone(), next.clone())
	}
	return next.clone()
}

// Subscribe registers fn for every effective change. The returned cancel
// function is idempotent.
func (c *Container) Subscribe(fn Listener) (cancel func()) {
	return c.subscribe(0, fn)
}

// SubscribeField registers fn for changes of a single field.
func (c *Container) SubscribeField(f Field, fn Listener) (cancel func()) {
	return c.subscribe(f, fn)
}

// Subscribers returns the number of registered listeners.
func (c *Container) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Container) subscribe(f Field, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	id := uuid.New()

	c.mu.Lock()
	c.subs = append(c.subs, subscription{id: id, field: f, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}
