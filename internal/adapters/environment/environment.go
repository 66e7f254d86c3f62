// Package environment couples the normalized store with a network into a ports.Environment.
package environment

import (
	"context"

	"go.trai.ch/tether/internal/adapters/store"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/zerr"
)

// Environment implements ports.Environment.
type Environment struct {
	store   *store.Store
	network ports.Network
	logger  ports.Logger
}

var _ ports.Environment = (*Environment)(nil)

// New creates an Environment over st and network.
func New(st *store.Store, network ports.Network, logger ports.Logger) *Environment {
	return &Environment{
		store:   st,
		network: network,
		logger:  logger,
	}
}

// Store returns the underlying store.
func (e *Environment) Store() *store.Store {
	return e.store
}

// Execute runs op on the network. Each payload's data is published to the store before the payload
// reaches the sink; a payload carrying only errors terminates the stream with an error.
func (e *Environment) Execute(ctx context.Context, op domain.OperationDescriptor) ports.Stream {
	return ports.StreamFunc(func(sink ports.Sink) ports.Disposable {
		e.logger.Debug("executing operation", "operation", op.Name(), "identity", op.Identity.String())
		return e.network.Execute(ctx, op).Subscribe(ports.Sink{
			OnNext: func(p domain.Payload) {
				if p.Data == nil && len(p.Errors) > 0 {
					sink.Error(zerr.With(zerr.New(p.ErrorMessage()), "operation", op.Name()))
					return
				}
				if len(p.Errors) > 0 {
					e.logger.Warn("payload carries errors", "operation", op.Name(), "errors", p.ErrorMessage())
				}
				e.store.Publish(op.Root, p.Data)
				sink.Next(p)
			},
			OnError:    sink.Error,
			OnComplete: sink.Complete,
		})
	})
}

// CommitPayload writes data for op straight into the store, without a network round trip.
func (e *Environment) CommitPayload(op domain.OperationDescriptor, data map[string]any) {
	e.store.Publish(op.Root, data)
}

// Retain implements ports.Environment.
func (e *Environment) Retain(op domain.OperationDescriptor) ports.Disposable {
	return e.store.Retain(op)
}

// Lookup implements ports.Environment.
func (e *Environment) Lookup(sel domain.Selector) domain.Snapshot {
	return e.store.Lookup(sel)
}

// Subscribe implements ports.Environment.
func (e *Environment) Subscribe(snapshot domain.Snapshot, fn func(domain.Snapshot)) ports.Disposable {
	return e.store.Subscribe(snapshot, fn)
}

// Check implements ports.Environment.
func (e *Environment) Check(op domain.OperationDescriptor) domain.Availability {
	return e.store.Check(op)
}
