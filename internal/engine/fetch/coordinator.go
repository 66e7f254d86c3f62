// Package fetch starts, deduplicates and cancels executions of operations.
package fetch

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/zerr"
)

// Coordinator owns the in-flight units of work. At most one pending unit exists per operation
// identity.
type Coordinator struct {
	env       ports.Environment
	logger    ports.Logger
	telemetry ports.Telemetry

	mu      sync.Mutex
	pending map[domain.Identity]*Unit
}

// NewCoordinator creates a Coordinator executing through env.
func NewCoordinator(env ports.Environment, logger ports.Logger, telemetry ports.Telemetry) *Coordinator {
	return &Coordinator{
		env:       env,
		logger:    logger,
		telemetry: telemetry,
		pending:   make(map[domain.Identity]*Unit),
	}
}

// Start returns a unit of work for op under policy. A pending unit for the same identity is reused.
//
// store-only never executes. store-or-network executes only when the store cannot satisfy op; when
// the data is stale it resolves at once and refreshes the store in the background. network-only
// always executes.
func (c *Coordinator) Start(ctx context.Context, op domain.OperationDescriptor, policy domain.FetchPolicy) *Unit {
	if u := c.inflight(op.Identity); u != nil {
		c.logger.Debug("reusing in-flight fetch", "operation", op.Name(), "identity", op.Identity.String())
		return u
	}

	switch policy {
	case domain.FetchPolicyStoreOnly:
		return c.resolveFromStore(ctx, op, policy)
	case domain.FetchPolicyStoreOrNetwork:
		switch c.env.Check(op).Status {
		case domain.Available:
			return c.resolveFromStore(ctx, op, policy)
		case domain.Stale:
			ctx, vertex := c.record(ctx, op, policy)
			u := newUnit(op, vertex)
			vertex.Cached()
			vertex.Log(domain.LogLevelDebug, "stale data, refreshing in background")
			u.settle(Resolved, nil)
			c.execute(ctx, u)
			return u
		case domain.Unavailable:
		}
	case domain.FetchPolicyNetworkOnly:
	}

	c.mu.Lock()
	if existing, ok := c.pending[op.Identity]; ok {
		c.mu.Unlock()
		return existing
	}
	u := newUnit(op, nil)
	c.pending[op.Identity] = u
	c.mu.Unlock()

	ctx, u.vertex = c.record(ctx, op, policy)
	c.execute(ctx, u)
	return u
}

func (c *Coordinator) record(ctx context.Context, op domain.OperationDescriptor, policy domain.FetchPolicy) (context.Context, ports.Vertex) {
	return c.telemetry.Record(ctx, "fetch "+op.Name(),
		ports.WithAttribute("identity", op.Identity.String()),
		ports.WithAttribute("fetch_policy", policy.String()),
	)
}

func (c *Coordinator) inflight(id domain.Identity) *Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[id]
}

func (c *Coordinator) resolveFromStore(ctx context.Context, op domain.OperationDescriptor, policy domain.FetchPolicy) *Unit {
	_, vertex := c.record(ctx, op, policy)
	u := newUnit(op, vertex)
	vertex.Cached()
	u.settle(Resolved, nil)
	vertex.Complete(nil)
	return u
}

// execute subscribes to the environment's execution of u's operation. The first payload resolves u;
// the stream stays open until it completes, fails or u is cancelled.
func (c *Coordinator) execute(ctx context.Context, u *Unit) {
	u.openStream()
	op := u.op

	sub := c.env.Execute(ctx, op).Subscribe(ports.Sink{
		OnNext: func(domain.Payload) {
			u.vertex.Log(domain.LogLevelDebug, "payload received")
			c.settle(u, Resolved, nil)
		},
		OnError: func(err error) {
			failure := zerr.With(errors.Join(domain.ErrFetchFailed, err), "operation", op.Name())
			c.endStream(u, failure)
			if !c.settle(u, Errored, failure) {
				c.logger.Warn("execution failed after data was delivered", "operation", op.Name(), "error", err)
			}
		},
		OnComplete: func() {
			c.endStream(u, nil)
			c.settle(u, Resolved, nil)
		},
	})
	u.attach(sub)
}

func (c *Coordinator) settle(u *Unit, state State, err error) bool {
	c.forget(u)
	return u.settle(state, err)
}

func (c *Coordinator) forget(u *Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[u.op.Identity] == u {
		delete(c.pending, u.op.Identity)
	}
}

// endStream closes u's stream and completes its telemetry vertex.
func (c *Coordinator) endStream(u *Unit, err error) {
	sub, ok := u.closeStream()
	if !ok {
		return
	}
	if sub != nil {
		sub.Dispose()
	}
	u.vertex.Complete(err)
}

// Cancel abandons a pending unit that has no waiters and disposes its execution. On a settled unit
// it only stops a still-open stream. It reports false when the unit is pending and still awaited.
func (c *Coordinator) Cancel(u *Unit) bool {
	abandoned, awaited := u.abandon()
	if awaited {
		return false
	}
	if abandoned {
		c.forget(u)
		c.logger.Debug("abandoned fetch", "operation", u.op.Name(), "identity", u.op.Identity.String())
		c.endStream(u, domain.ErrUnitAbandoned)
		return true
	}
	c.endStream(u, nil)
	return true
}
