// Package resource keeps query results alive while something needs them.
package resource

import (
	"context"
	"sync"
	"time"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/engine/fetch"
)

// Entry is the cache record of one operation identity.
type Entry struct {
	op   domain.OperationDescriptor
	unit *fetch.Unit

	// Guarded by Cache.mu.
	temporary  ports.Disposable
	permanent  ports.Disposable
	count      int
	timer      *time.Timer
	generation uint64
	disposed   bool
}

// Operation returns the operation the entry was created for.
func (e *Entry) Operation() domain.OperationDescriptor {
	return e.op
}

// Unit returns the unit of work backing the entry.
func (e *Entry) Unit() *fetch.Unit {
	return e.unit
}

// Stats is a point-in-time view of an entry.
type Stats struct {
	PermanentRetains int
	TemporaryRetain  bool
	TimerArmed       bool
	State            fetch.State
}

// Cache maps operation identities to entries. An entry is created by the first render that needs
// it and holds a temporary retain on its data; committed renders hold permanent retains. Once nothing
// holds a permanent retain the entry survives for the grace delay, then its data is released.
type Cache struct {
	coordinator *fetch.Coordinator
	env         ports.Environment
	logger      ports.Logger
	graceDelay  time.Duration

	mu      sync.Mutex
	entries map[domain.Identity]*Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithGraceDelay sets how long an unretained entry survives.
func WithGraceDelay(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.graceDelay = d
		}
	}
}

// New creates a Cache.
func New(coordinator *fetch.Coordinator, env ports.Environment, logger ports.Logger, opts ...Option) *Cache {
	c := &Cache{
		coordinator: coordinator,
		env:         env,
		logger:      logger,
		graceDelay:  domain.DefaultGraceDelay,
		entries:     make(map[domain.Identity]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire returns the entry for op, creating it and starting its unit of work if needed.
// The data is retained before the unit starts, so it survives until the next commit.
func (c *Cache) Acquire(ctx context.Context, op domain.OperationDescriptor, policy domain.FetchPolicy) *Entry {
	c.mu.Lock()
	var stale []ports.Disposable
	if e, ok := c.entries[op.Identity]; ok {
		if e.unit.State() != fetch.Abandoned {
			if e.count == 0 {
				c.armLocked(e)
			}
			c.mu.Unlock()
			return e
		}
		stale = c.removeLocked(e)
	}
	c.mu.Unlock()
	disposeAll(stale)

	temporary := c.env.Retain(op)
	unit := c.coordinator.Start(ctx, op, policy)

	c.mu.Lock()
	if e, ok := c.entries[op.Identity]; ok {
		c.mu.Unlock()
		temporary.Dispose()
		if unit != e.unit {
			c.coordinator.Cancel(unit)
		}
		return e
	}
	e := &Entry{
		op:        op,
		unit:      unit,
		temporary: temporary,
	}
	c.entries[op.Identity] = e
	c.armLocked(e)
	c.mu.Unlock()

	c.logger.Debug("created cache entry", "operation", op.Name(), "identity", op.Identity.String())
	unit.Observe(func(*fetch.Unit) { c.settled(e) })
	unit.SetIdleHandler(func(*fetch.Unit) { c.idle(e) })
	return e
}

// CommitPermanent records a committed consumer of op. The first consumer turns the temporary retain
// into the permanent one and stops the grace timer. The returned disposable releases the consumer
// and may be called any number of times.
func (c *Cache) CommitPermanent(ctx context.Context, op domain.OperationDescriptor, policy domain.FetchPolicy) ports.Disposable {
	for {
		e := c.Acquire(ctx, op, policy)

		c.mu.Lock()
		if e.disposed {
			c.mu.Unlock()
			continue
		}
		e.count++
		c.stopLocked(e)
		if e.permanent == nil {
			if e.temporary != nil {
				e.permanent, e.temporary = e.temporary, nil
			} else {
				e.permanent = c.env.Retain(op)
			}
		}
		leftover := e.temporary
		e.temporary = nil
		c.mu.Unlock()

		if leftover != nil {
			leftover.Dispose()
		}

		var once sync.Once
		return ports.DisposableFunc(func() {
			once.Do(func() { c.release(e) })
		})
	}
}

func (c *Cache) release(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.disposed || e.count == 0 {
		return
	}
	e.count--
	if e.count == 0 {
		c.armLocked(e)
	}
}

// settled gives an unretained entry a fresh grace window once its unit settles.
func (c *Cache) settled(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !e.disposed && e.count == 0 {
		c.armLocked(e)
	}
}

// idle drops an entry whose pending unit lost its last waiter before anything committed to it.
func (c *Cache) idle(e *Entry) {
	c.mu.Lock()
	busy := e.disposed || e.count > 0
	c.mu.Unlock()
	if busy {
		return
	}

	if !c.coordinator.Cancel(e.unit) || e.unit.State() != fetch.Abandoned {
		return
	}

	c.mu.Lock()
	retains := c.removeLocked(e)
	c.mu.Unlock()
	disposeAll(retains)

	c.logger.Debug("dropped abandoned cache entry", "operation", e.op.Name(), "identity", e.op.Identity.String())
}

// sweep releases an entry whose grace window elapsed. A pending entry is skipped; settling re-arms it.
func (c *Cache) sweep(e *Entry, generation uint64) {
	c.mu.Lock()
	if e.disposed || e.generation != generation || e.count > 0 || e.unit.State() == fetch.Pending {
		c.mu.Unlock()
		return
	}
	retains := c.removeLocked(e)
	c.mu.Unlock()

	disposeAll(retains)
	c.coordinator.Cancel(e.unit)
	c.logger.Debug("collected cache entry", "operation", e.op.Name(), "identity", e.op.Identity.String())
}

// armLocked (re)starts the grace timer. Callers hold c.mu.
func (c *Cache) armLocked(e *Entry) {
	c.stopLocked(e)
	generation := e.generation
	e.timer = time.AfterFunc(c.graceDelay, func() { c.sweep(e, generation) })
}

// stopLocked cancels the grace timer. The generation bump makes an already fired callback a no-op.
// Callers hold c.mu.
func (c *Cache) stopLocked(e *Entry) {
	e.generation++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// removeLocked deletes e and returns the retains to dispose. Callers hold c.mu.
func (c *Cache) removeLocked(e *Entry) []ports.Disposable {
	if e.disposed {
		return nil
	}
	e.disposed = true
	c.stopLocked(e)
	if c.entries[e.op.Identity] == e {
		delete(c.entries, e.op.Identity)
	}

	var retains []ports.Disposable
	if e.temporary != nil {
		retains = append(retains, e.temporary)
		e.temporary = nil
	}
	if e.permanent != nil {
		retains = append(retains, e.permanent)
		e.permanent = nil
	}
	return retains
}

func disposeAll(ds []ports.Disposable) {
	for _, d := range ds {
		d.Dispose()
	}
}

// Stats reports the state of the entry for id.
func (c *Cache) Stats(id domain.Identity) (Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Stats{}, false
	}
	return Stats{
		PermanentRetains: e.count,
		TemporaryRetain:  e.temporary != nil,
		TimerArmed:       e.timer != nil,
		State:            e.unit.State(),
	}, true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close drops every entry, releasing its data and stopping its execution.
func (c *Cache) Close() {
	c.mu.Lock()
	var retains []ports.Disposable
	units := make([]*fetch.Unit, 0, len(c.entries))
	for _, e := range c.entries {
		units = append(units, e.unit)
		retains = append(retains, c.removeLocked(e)...)
	}
	c.mu.Unlock()

	disposeAll(retains)
	for _, u := range units {
		c.coordinator.Cancel(u)
	}
}
