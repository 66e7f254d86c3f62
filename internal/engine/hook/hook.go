// Package hook binds a render call site to the query resource cache.
package hook

import (
	"context"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/engine/fetch"
	"go.trai.ch/tether/internal/engine/resource"
	"go.trai.ch/zerr"
)

// Request is what a call site asks for on every render.
type Request struct {
	Query                domain.OperationDescriptor
	FetchPolicy          domain.FetchPolicy
	ComponentDisplayName string
}

func (r Request) policy() domain.FetchPolicy {
	if r.FetchPolicy == "" {
		return domain.DefaultFetchPolicy
	}
	return r.FetchPolicy
}

// QueryHook is the per-call-site state of a data-bound component. It is not safe for concurrent
// use; a call site is only ever rendered from one goroutine.
type QueryHook struct {
	cache          *resource.Cache
	env            ports.Environment
	logger         ports.Logger
	churnThreshold int

	committed    domain.Identity
	release      ports.Disposable
	subscription ports.Disposable
	lastReady    Result

	lastIdentity domain.Identity
	streak       int
	warned       bool
}

// Option configures a QueryHook.
type Option func(*QueryHook)

// WithChurnThreshold sets how many consecutive uncommitted identities are tolerated before identity
// churn is reported.
func WithChurnThreshold(n int) Option {
	return func(h *QueryHook) {
		if n > 0 {
			h.churnThreshold = n
		}
	}
}

// New creates a QueryHook.
func New(cache *resource.Cache, env ports.Environment, logger ports.Logger, opts ...Option) *QueryHook {
	h := &QueryHook{
		cache:          cache,
		env:            env,
		logger:         logger,
		churnThreshold: domain.DefaultChurnThreshold,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Evaluate resolves req against the cache. It never releases a previously committed identity;
// that happens on the next Commit or on Cleanup.
func (h *QueryHook) Evaluate(ctx context.Context, req Request) Result {
	h.trackChurn(req)

	policy := req.policy()
	entry := h.cache.Acquire(ctx, req.Query, policy)
	unit := entry.Unit()

	switch unit.State() {
	case fetch.Resolved:
		result := Ready(h.env.Lookup(req.Query.Root))
		result.policy = policy
		h.lastReady = result
		return result
	case fetch.Errored:
		return Failed(zerr.With(unit.Err(), "component", req.ComponentDisplayName))
	case fetch.Abandoned:
		return Failed(zerr.With(zerr.Wrap(domain.ErrUnitAbandoned, "query was cancelled"), "component", req.ComponentDisplayName))
	default:
		return Suspended(unit)
	}
}

// Commit makes req's data permanent for this call site and subscribes onChange to store updates.
// Committing the identity already committed is a no-op; a new identity first releases the old one.
func (h *QueryHook) Commit(ctx context.Context, req Request, onChange func(domain.Snapshot)) {
	id := req.Query.Identity
	if h.release != nil && h.committed == id {
		return
	}
	h.Cleanup()

	h.release = h.cache.CommitPermanent(ctx, req.Query, req.policy())

	snapshot := h.lastReady.snapshot
	if h.lastReady.kind != KindReady || snapshot.Selector.Owner != id {
		snapshot = h.env.Lookup(req.Query.Root)
	}
	h.subscription = h.env.Subscribe(snapshot, onChange)
	h.committed = id
	h.streak = 0
	h.warned = false
}

// Cleanup releases the committed identity, if any.
func (h *QueryHook) Cleanup() {
	if h.subscription != nil {
		h.subscription.Dispose()
		h.subscription = nil
	}
	if h.release != nil {
		h.release.Dispose()
		h.release = nil
	}
	h.committed = domain.Identity{}
}

// Committed returns the identity currently committed, if any.
func (h *QueryHook) Committed() (domain.Identity, bool) {
	return h.committed, h.release != nil
}

func (h *QueryHook) trackChurn(req Request) {
	id := req.Query.Identity
	if id == h.lastIdentity {
		return
	}
	h.lastIdentity = id
	if id == h.committed {
		h.streak = 0
		return
	}
	h.streak++
	if h.streak > h.churnThreshold && !h.warned {
		h.warned = true
		h.logger.Warn("operation identity changes on every render",
			"component", req.ComponentDisplayName,
			"operation", req.Query.Name(),
			"renders", h.streak,
			"error", domain.ErrIdentityChurn,
		)
	}
}
