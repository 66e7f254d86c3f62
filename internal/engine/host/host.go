// Package host renders data-bound components cooperatively: suspended components show a fallback
// until their data settles, and a commit phase makes rendered data permanent.
package host

import (
	"context"
	"strings"
	"sync"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/engine/hook"
	"go.trai.ch/tether/internal/engine/resource"
)

// Props are the inputs of a mounted component.
type Props struct {
	Query       domain.OperationDescriptor
	FetchPolicy domain.FetchPolicy
}

// RenderFunc turns ready data into output.
type RenderFunc func(domain.Snapshot) string

// Host owns a set of mounted roots. Mount, SetProps, Unmount, Render and Flush must be called from a
// single goroutine; while Run is active that is the Run goroutine, reached through Do.
type Host struct {
	cache          *resource.Cache
	env            ports.Environment
	logger         ports.Logger
	fallback       string
	churnThreshold int

	mu      sync.Mutex
	roots   []*Root
	queue   []*Root
	busy    bool
	changed chan struct{}

	wake chan struct{}
	work chan task
}

type task struct {
	fn   func()
	done chan struct{}
}

// Option configures a Host.
type Option func(*Host)

// WithFallback sets the output of a suspended component.
func WithFallback(text string) Option {
	return func(h *Host) {
		h.fallback = text
	}
}

// WithChurnThreshold sets the identity churn threshold of every mounted component.
func WithChurnThreshold(n int) Option {
	return func(h *Host) {
		h.churnThreshold = n
	}
}

// New creates a Host rendering through cache.
func New(cache *resource.Cache, env ports.Environment, logger ports.Logger, opts ...Option) *Host {
	h := &Host{
		cache:          cache,
		env:            env,
		logger:         logger,
		fallback:       domain.DefaultFallback,
		churnThreshold: domain.DefaultChurnThreshold,
		changed:        make(chan struct{}),
		wake:           make(chan struct{}, 1),
		work:           make(chan task),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount creates a root for a component and renders it once. The render is not committed until the
// next Flush.
func (h *Host) Mount(ctx context.Context, name string, props Props, render RenderFunc) *Root {
	r := &Root{
		host:   h,
		name:   name,
		props:  props,
		render: render,
		hook:   hook.New(h.cache, h.env, h.logger, hook.WithChurnThreshold(h.churnThreshold)),
	}

	h.mu.Lock()
	h.roots = append(h.roots, r)
	h.mu.Unlock()

	h.logger.Debug("mounted component", "component", name, "operation", props.Query.Name())
	h.renderRoot(ctx, r)
	return r
}

// Render re-renders every scheduled root until none is left and returns how many renders ran.
func (h *Host) Render(ctx context.Context) int {
	rendered := 0
	for {
		h.mu.Lock()
		queue := h.queue
		h.queue = nil
		for _, r := range queue {
			r.scheduled = false
		}
		h.mu.Unlock()

		if len(queue) == 0 {
			return rendered
		}
		for _, r := range queue {
			if r.isUnmounted() {
				continue
			}
			h.renderRoot(ctx, r)
			rendered++
		}
	}
}

// Flush renders scheduled roots and commits every root whose last render was ready, repeating until
// committing schedules nothing new.
func (h *Host) Flush(ctx context.Context) {
	h.setBusy(true)
	defer h.setBusy(false)

	for {
		h.Render(ctx)
		for _, r := range h.mounted() {
			h.commitRoot(ctx, r)
		}
		if h.queued() == 0 {
			return
		}
	}
}

// Run drives the host until ctx is done: queued work runs on this goroutine and every wake-up
// ends with a Flush.
func (h *Host) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-h.work:
			t.fn()
			h.Flush(ctx)
			close(t.done)
		case <-h.wake:
			h.Flush(ctx)
		}
	}
}

// Do runs fn on the Run goroutine and waits until the Flush that follows it has finished.
func (h *Host) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case h.work <- t:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settle blocks until no root is suspended and no render or commit is outstanding.
func (h *Host) Settle(ctx context.Context) error {
	for {
		h.mu.Lock()
		settled := !h.busy && len(h.queue) == 0 && h.suspendedLocked() == 0
		changed := h.changed
		h.mu.Unlock()

		if settled {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Host) renderRoot(ctx context.Context, r *Root) {
	result := r.hook.Evaluate(ctx, r.request())

	var output string
	var wait ports.Disposable
	switch result.Kind() {
	case hook.KindReady:
		if err := result.MissingData(); err != nil {
			h.logger.Debug("rendering incomplete store data", "component", r.name, "error", err)
		}
		output = r.render(result.Snapshot())
	case hook.KindSuspended:
		output = h.fallback
		wait = result.Awaitable().OnSettle(func() { h.schedule(r) })
	case hook.KindFailed:
		output = "Error: " + errorMessage(result.Err())
		r.hook.Cleanup()
		h.logger.Warn("component failed", "component", r.name, "error", result.Err())
	}

	// The new wait is registered before the old one is withdrawn, so re-rendering a pending
	// identity never leaves it without waiters.
	if r.wait != nil {
		r.wait.Dispose()
	}
	r.wait = wait
	r.result = result

	h.mu.Lock()
	r.output = output
	r.kind = result.Kind()
	r.err = result.Err()
	r.renders++
	h.broadcastLocked()
	h.mu.Unlock()
}

func (h *Host) commitRoot(ctx context.Context, r *Root) {
	if r.isUnmounted() || r.result.Kind() != hook.KindReady {
		return
	}
	r.hook.Commit(ctx, r.request(), func(domain.Snapshot) { h.schedule(r) })
}

// schedule queues r for the next render. It is safe to call from any goroutine.
func (h *Host) schedule(r *Root) {
	h.mu.Lock()
	if r.unmounted || r.scheduled {
		h.mu.Unlock()
		return
	}
	r.scheduled = true
	h.queue = append(h.queue, r)
	h.broadcastLocked()
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Host) unmount(r *Root) {
	h.mu.Lock()
	if r.unmounted {
		h.mu.Unlock()
		return
	}
	r.unmounted = true
	h.roots = without(h.roots, r)
	h.queue = without(h.queue, r)
	h.broadcastLocked()
	h.mu.Unlock()

	if r.wait != nil {
		r.wait.Dispose()
		r.wait = nil
	}
	r.result = hook.Result{}
	r.hook.Cleanup()
	h.logger.Debug("unmounted component", "component", r.name)
}

func (h *Host) mounted() []*Root {
	h.mu.Lock()
	defer h.mu.Unlock()
	roots := make([]*Root, len(h.roots))
	copy(roots, h.roots)
	return roots
}

func (h *Host) queued() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

func (h *Host) setBusy(busy bool) {
	h.mu.Lock()
	h.busy = busy
	h.broadcastLocked()
	h.mu.Unlock()
}

func (h *Host) suspendedLocked() int {
	n := 0
	for _, r := range h.roots {
		if r.kind == hook.KindSuspended {
			n++
		}
	}
	return n
}

// broadcastLocked wakes every Settle call. Callers hold h.mu.
func (h *Host) broadcastLocked() {
	close(h.changed)
	h.changed = make(chan struct{})
}

func without(roots []*Root, r *Root) []*Root {
	out := roots[:0]
	for _, other := range roots {
		if other != r {
			out = append(out, other)
		}
	}
	return out
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}
