package host

import (
	"context"

	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/engine/hook"
)

// Root is a mounted component.
type Root struct {
	host   *Host
	name   string
	props  Props
	render RenderFunc
	hook   *hook.QueryHook

	// Owned by the rendering goroutine.
	wait   ports.Disposable
	result hook.Result

	// Guarded by host.mu.
	output    string
	kind      hook.Kind
	err       error
	renders   int
	scheduled bool
	unmounted bool
}

// Name returns the component name.
func (r *Root) Name() string {
	return r.name
}

// SetProps replaces the root's props and re-renders it.
func (r *Root) SetProps(ctx context.Context, props Props) {
	if r.isUnmounted() {
		return
	}
	r.props = props
	r.host.renderRoot(ctx, r)
}

// Unmount removes the root. An uncommitted render is dropped and committed data is released.
func (r *Root) Unmount() {
	r.host.unmount(r)
}

// Output returns what the last render produced.
func (r *Root) Output() string {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	return r.output
}

// Status returns the kind of the last render.
func (r *Root) Status() hook.Kind {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	return r.kind
}

// Err returns the error of the last render, if it failed.
func (r *Root) Err() error {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	return r.err
}

// RenderCount returns how many times the root rendered.
func (r *Root) RenderCount() int {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	return r.renders
}

func (r *Root) isUnmounted() bool {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	return r.unmounted
}

func (r *Root) request() hook.Request {
	return hook.Request{
		Query:                r.props.Query,
		FetchPolicy:          r.props.FetchPolicy,
		ComponentDisplayName: r.name,
	}
}
