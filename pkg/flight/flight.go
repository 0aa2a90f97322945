// Package flight coalesces concurrent calls for the same key into one unit
// of work and keeps finished results for a bounded time.
package flight

import (
	"sync"
	"time"
)

type Cache[K comparable, V any] struct {
	finished map[K]entry[V]
	fmu      sync.RWMutex

	pending map[K]*job[V]
	pmu     sync.Mutex

	work func(K) (V, error)
	ttl  time.Duration
}

type entry[V any] struct {
	val      V
	deadline time.Time // zero => never expires
}

type job[V any] struct {
	val  V
	err  error
	done chan struct{}
}

func NewCache[K comparable, V any](work func(K) (V, error)) *Cache[K, V] {
	return &Cache[K, V]{
		finished: make(map[K]entry[V]),
		pending:  make(map[K]*job[V]),
		work:     work,
		ttl:      time.Hour,
	}
}

// Expiry sets how long finished results are kept. d <= 0 keeps them forever.
func (c *Cache[K, V]) Expiry(d time.Duration) {
	c.fmu.Lock()
	c.ttl = d
	c.fmu.Unlock()
}

// Get returns the cached result for k, joins an in-flight computation if one
// exists, or runs the work itself.
func (c *Cache[K, V]) Get(k K) (V, error) {
	if v, ok := c.lookup(k); ok {
		return v, nil
	}

	c.pmu.Lock()
	if p, ok := c.pending[k]; ok {
		c.pmu.Unlock()
		<-p.done
		return p.val, p.err
	}
	j := &job[V]{done: make(chan struct{})}
	c.pending[k] = j
	c.pmu.Unlock()

	return c.run(k, j)
}

// Force recomputes k, waiting out any in-flight computation first.
func (c *Cache[K, V]) Force(k K) (V, error) {
	var j *job[V]
	for {
		c.pmu.Lock()
		if existing, ok := c.pending[k]; ok {
			c.pmu.Unlock()
			<-existing.done
			continue
		}
		j = &job[V]{done: make(chan struct{})}
		c.pending[k] = j
		c.pmu.Unlock()
		break
	}
	return c.run(k, j)
}

func (c *Cache[K, V]) run(k K, j *job[V]) (V, error) {
	j.val, j.err = c.work(k)
	if j.err == nil {
		c.store(k, j.val)
	}

	c.pmu.Lock()
	close(j.done)
	delete(c.pending, k)
	c.pmu.Unlock()

	return j.val, j.err
}

func (c *Cache[K, V]) lookup(k K) (V, bool) {
	c.fmu.RLock()
	e, ok := c.finished[k]
	c.fmu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		c.fmu.Lock()
		// Re-check under the write lock; another goroutine may have refreshed.
		if cur, ok := c.finished[k]; ok && cur.deadline.Equal(e.deadline) {
			delete(c.finished, k)
		}
		c.fmu.Unlock()
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *Cache[K, V]) store(k K, v V) {
	c.fmu.Lock()
	e := entry[V]{val: v}
	if c.ttl > 0 {
		e.deadline = time.Now().Add(c.ttl)
	}
	c.finished[k] = e
	c.fmu.Unlock()
}
