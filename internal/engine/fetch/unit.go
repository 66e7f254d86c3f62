package fetch

import (
	"sync"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
)

// State is the lifecycle state of a Unit.
type State int

const (
	// Pending means the unit has not produced a result yet.
	Pending State = iota
	// Resolved means data for the operation is in the store.
	Resolved
	// Errored means the execution failed.
	Errored
	// Abandoned means the unit was cancelled before it settled.
	Abandoned
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Errored:
		return "errored"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Unit is one execution, or store read, of an operation. It is also the awaitable a suspended
// caller waits on.
type Unit struct {
	op     domain.OperationDescriptor
	vertex ports.Vertex

	mu         sync.Mutex
	state      State
	err        error
	done       chan struct{}
	waiters    []*waiter
	nextWaiter uint64
	observers  []func(*Unit)
	idle       func(*Unit)
	sub        ports.Disposable
	streamOpen bool
}

type waiter struct {
	id uint64
	fn func()
}

func newUnit(op domain.OperationDescriptor, vertex ports.Vertex) *Unit {
	return &Unit{
		op:     op,
		vertex: vertex,
		done:   make(chan struct{}),
	}
}

// Operation returns the operation the unit executes.
func (u *Unit) Operation() domain.OperationDescriptor {
	return u.op
}

// State returns the current state.
func (u *Unit) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Err returns the terminal error of an Errored or Abandoned unit.
func (u *Unit) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Done is closed once the unit leaves Pending.
func (u *Unit) Done() <-chan struct{} {
	return u.done
}

// Waiters returns the number of registered resume callbacks.
func (u *Unit) Waiters() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.waiters)
}

// StreamOpen reports whether the execution behind the unit is still delivering payloads.
func (u *Unit) StreamOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.streamOpen
}

// OnSettle registers fn to run once when the unit leaves Pending. Callbacks run in registration
// order; on an already settled unit fn runs immediately. Disposing the returned handle withdraws fn;
// when the last waiter of a pending unit withdraws, the unit's idle handler runs.
func (u *Unit) OnSettle(fn func()) ports.Disposable {
	u.mu.Lock()
	if u.state != Pending {
		u.mu.Unlock()
		fn()
		return ports.DisposableFunc(nil)
	}
	u.nextWaiter++
	id := u.nextWaiter
	u.waiters = append(u.waiters, &waiter{id: id, fn: fn})
	u.mu.Unlock()

	var once sync.Once
	return ports.DisposableFunc(func() {
		once.Do(func() { u.withdraw(id) })
	})
}

func (u *Unit) withdraw(id uint64) {
	u.mu.Lock()
	if u.state != Pending {
		u.mu.Unlock()
		return
	}
	for i, w := range u.waiters {
		if w.id == id {
			u.waiters = append(u.waiters[:i], u.waiters[i+1:]...)
			break
		}
	}
	idle := u.idle
	if len(u.waiters) > 0 {
		idle = nil
	}
	u.mu.Unlock()

	if idle != nil {
		idle(u)
	}
}

// Observe registers fn to run when the unit settles, before any waiter. Observers are not waiters
// and never keep a unit alive. On an already settled unit fn runs immediately.
func (u *Unit) Observe(fn func(*Unit)) {
	u.mu.Lock()
	if u.state != Pending {
		u.mu.Unlock()
		fn(u)
		return
	}
	u.observers = append(u.observers, fn)
	u.mu.Unlock()
}

// SetIdleHandler sets the function run when the last waiter of a pending unit withdraws.
func (u *Unit) SetIdleHandler(fn func(*Unit)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.idle = fn
}

// settle moves a pending unit to state and notifies observers then waiters, outside the lock.
func (u *Unit) settle(state State, err error) bool {
	u.mu.Lock()
	if u.state != Pending {
		u.mu.Unlock()
		return false
	}
	u.state = state
	u.err = err
	close(u.done)
	observers, waiters := u.observers, u.waiters
	u.observers, u.waiters, u.idle = nil, nil, nil
	u.mu.Unlock()

	for _, fn := range observers {
		fn(u)
	}
	for _, w := range waiters {
		w.fn()
	}
	return true
}

// abandon moves a pending unit without waiters to Abandoned. It reports whether it did, and whether
// the unit was left alone because it is pending and still awaited.
func (u *Unit) abandon() (abandoned, awaited bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != Pending {
		return false, false
	}
	if len(u.waiters) > 0 {
		return false, true
	}
	u.state = Abandoned
	u.err = domain.ErrUnitAbandoned
	close(u.done)
	u.observers, u.idle = nil, nil
	return true, false
}

func (u *Unit) openStream() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.streamOpen = true
}

// attach stores the execution subscription, disposing it at once if the stream already ended.
func (u *Unit) attach(sub ports.Disposable) {
	u.mu.Lock()
	if !u.streamOpen {
		u.mu.Unlock()
		sub.Dispose()
		return
	}
	u.sub = sub
	u.mu.Unlock()
}

// closeStream marks the stream as ended and returns the subscription to dispose, if any.
func (u *Unit) closeStream() (ports.Disposable, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.streamOpen {
		return nil, false
	}
	u.streamOpen = false
	sub := u.sub
	u.sub = nil
	return sub, true
}
