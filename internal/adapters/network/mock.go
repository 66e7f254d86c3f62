// Package network provides ports.Network implementations.
package network

import (
	"context"
	"sync"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
)

// MockNetwork records executions and leaves them pending until a test resolves or rejects them.
type MockNetwork struct {
	mu         sync.Mutex
	nextID     uint64
	pending    []*execution
	executions []domain.OperationDescriptor
	cancelled  []domain.OperationDescriptor
}

type execution struct {
	id   uint64
	op   domain.OperationDescriptor
	sink ports.Sink
}

var _ ports.Network = (*MockNetwork)(nil)

// NewMockNetwork creates a MockNetwork with nothing pending.
func NewMockNetwork() *MockNetwork {
	return &MockNetwork{}
}

// Execute implements ports.Network. The execution is recorded when the stream is subscribed.
func (n *MockNetwork) Execute(_ context.Context, op domain.OperationDescriptor) ports.Stream {
	return ports.StreamFunc(func(sink ports.Sink) ports.Disposable {
		n.mu.Lock()
		n.nextID++
		exec := &execution{id: n.nextID, op: op, sink: sink}
		n.pending = append(n.pending, exec)
		n.executions = append(n.executions, op)
		n.mu.Unlock()

		var once sync.Once
		return ports.DisposableFunc(func() {
			once.Do(func() {
				n.mu.Lock()
				defer n.mu.Unlock()
				if n.remove(exec.id) {
					n.cancelled = append(n.cancelled, op)
				}
			})
		})
	})
}

// remove drops the pending execution with the given id. Callers hold n.mu.
func (n *MockNetwork) remove(id uint64) bool {
	for i, exec := range n.pending {
		if exec.id == id {
			n.pending = append(n.pending[:i], n.pending[i+1:]...)
			return true
		}
	}
	return false
}

// take removes and returns the pending executions matching keep.
func (n *MockNetwork) take(keep func(*execution) bool) []*execution {
	n.mu.Lock()
	defer n.mu.Unlock()

	var matched []*execution
	rest := n.pending[:0]
	for _, exec := range n.pending {
		if keep(exec) {
			matched = append(matched, exec)
			continue
		}
		rest = append(rest, exec)
	}
	n.pending = rest
	return matched
}

// Resolve delivers payload to every pending execution of req and completes them.
func (n *MockNetwork) Resolve(req *domain.Request, payload domain.Payload) int {
	execs := n.take(func(e *execution) bool { return e.op.Request.ID == req.ID })
	for _, exec := range execs {
		exec.sink.Next(payload)
		exec.sink.Complete()
	}
	return len(execs)
}

// ResolveOperation delivers payload to the pending executions of one operation identity.
func (n *MockNetwork) ResolveOperation(id domain.Identity, payload domain.Payload) int {
	execs := n.take(func(e *execution) bool { return e.op.Identity == id })
	for _, exec := range execs {
		exec.sink.Next(payload)
		exec.sink.Complete()
	}
	return len(execs)
}

// Next delivers payload to every pending execution of req without completing them.
func (n *MockNetwork) Next(req *domain.Request, payload domain.Payload) int {
	n.mu.Lock()
	var sinks []ports.Sink
	for _, exec := range n.pending {
		if exec.op.Request.ID == req.ID {
			sinks = append(sinks, exec.sink)
		}
	}
	n.mu.Unlock()

	for _, sink := range sinks {
		sink.Next(payload)
	}
	return len(sinks)
}

// Reject fails every pending execution of req with err.
func (n *MockNetwork) Reject(req *domain.Request, err error) int {
	execs := n.take(func(e *execution) bool { return e.op.Request.ID == req.ID })
	for _, exec := range execs {
		exec.sink.Error(err)
	}
	return len(execs)
}

// Executions returns every operation executed so far, in order.
func (n *MockNetwork) Executions() []domain.OperationDescriptor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OperationDescriptor(nil), n.executions...)
}

// ExecuteCount returns how many times req was executed.
func (n *MockNetwork) ExecuteCount(req *domain.Request) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, op := range n.executions {
		if op.Request.ID == req.ID {
			count++
		}
	}
	return count
}

// Pending returns the operations still awaiting a response.
func (n *MockNetwork) Pending() []domain.OperationDescriptor {
	n.mu.Lock()
	defer n.mu.Unlock()
	ops := make([]domain.OperationDescriptor, 0, len(n.pending))
	for _, exec := range n.pending {
		ops = append(ops, exec.op)
	}
	return ops
}

// Cancelled returns the operations whose stream was disposed before a response arrived.
func (n *MockNetwork) Cancelled() []domain.OperationDescriptor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OperationDescriptor(nil), n.cancelled...)
}
