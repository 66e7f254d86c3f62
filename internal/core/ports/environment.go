// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/tether/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=environment.go -destination=mocks/mock_environment.go -package=mocks

// Disposable releases a resource. Dispose must be safe to call more than once.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable.
type DisposableFunc func()

// Dispose calls f.
func (f DisposableFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Sink receives the events of a Stream. Nil callbacks are ignored.
type Sink struct {
	OnNext     func(domain.Payload)
	OnError    func(error)
	OnComplete func()
}

// Next delivers a payload.
func (s Sink) Next(p domain.Payload) {
	if s.OnNext != nil {
		s.OnNext(p)
	}
}

// Error delivers a terminal error.
func (s Sink) Error(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

// Complete signals normal termination.
func (s Sink) Complete() {
	if s.OnComplete != nil {
		s.OnComplete()
	}
}

// Stream is a cold, multi-emission source of payloads.
// Subscribe may deliver events synchronously before it returns.
type Stream interface {
	Subscribe(sink Sink) Disposable
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(sink Sink) Disposable

// Subscribe calls f.
func (f StreamFunc) Subscribe(sink Sink) Disposable {
	return f(sink)
}

// Environment couples the normalized store with the network layer.
type Environment interface {
	// Execute starts a request execution. Payloads are published to the store before they are
	// delivered to the sink.
	Execute(ctx context.Context, op domain.OperationDescriptor) Stream

	// Retain protects the data reachable from op from garbage collection until disposed.
	Retain(op domain.OperationDescriptor) Disposable

	// Lookup reads a selector from the store.
	Lookup(sel domain.Selector) domain.Snapshot

	// Subscribe calls fn whenever a store update changes the data visible through snapshot.
	Subscribe(snapshot domain.Snapshot, fn func(domain.Snapshot)) Disposable

	// Check reports whether the store can satisfy op.
	Check(op domain.OperationDescriptor) domain.Availability
}

// Network executes requests against a remote data source.
type Network interface {
	Execute(ctx context.Context, op domain.OperationDescriptor) Stream
}
