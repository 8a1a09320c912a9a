package cybervault

import "sync"

// RefreshCounter is a monotonically increasing counter whose changes trigger
// list reloads. Subscribers run synchronously, in registration order, on the
// goroutine that called Increment.
type RefreshCounter struct {
	mu    sync.Mutex
	value uint64
	next  int
	subs  map[int]func(uint64)
	order []int
}

func NewRefreshCounter() *RefreshCounter {
	return &RefreshCounter{subs: make(map[int]func(uint64))}
}

func (c *RefreshCounter) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Increment bumps the counter and notifies subscribers with the new value.
func (c *RefreshCounter) Increment() uint64 {
	c.mu.Lock()
	c.value++
	v := c.value
	fns := make([]func(uint64), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.subs[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
	return v
}

// Subscribe registers fn and returns a function that removes it.
func (c *RefreshCounter) Subscribe(fn func(uint64)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn
	c.order = append(c.order, id)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}
