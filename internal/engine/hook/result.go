package hook

import (
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/engine/fetch"
	"go.trai.ch/zerr"
)

// Kind discriminates a Result.
type Kind int

const (
	// KindReady carries a snapshot to render.
	KindReady Kind = iota
	// KindSuspended carries a unit of work to wait on.
	KindSuspended
	// KindFailed carries the error to surface.
	KindFailed
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindSuspended:
		return "suspended"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of evaluating a query: Ready, Suspended or Failed.
type Result struct {
	kind     Kind
	snapshot domain.Snapshot
	unit     *fetch.Unit
	err      error
	policy   domain.FetchPolicy
}

// Ready returns a Result carrying snapshot.
func Ready(snapshot domain.Snapshot) Result {
	return Result{kind: KindReady, snapshot: snapshot}
}

// Suspended returns a Result that resumes when unit settles.
func Suspended(unit *fetch.Unit) Result {
	return Result{kind: KindSuspended, unit: unit}
}

// Failed returns a Result carrying err.
func Failed(err error) Result {
	return Result{kind: KindFailed, err: err}
}

// Kind returns the variant of the result.
func (r Result) Kind() Kind {
	return r.kind
}

// Snapshot returns the snapshot of a Ready result.
func (r Result) Snapshot() domain.Snapshot {
	return r.snapshot
}

// Awaitable returns the unit a Suspended result waits on.
func (r Result) Awaitable() *fetch.Unit {
	return r.unit
}

// Err returns the error of a Failed result.
func (r Result) Err() error {
	return r.err
}

// MissingData returns domain.ErrMissingData for a store-only read that found the data incomplete.
// A Ready result is still rendered; callers that want a failure or a fallback check this first.
func (r Result) MissingData() error {
	if r.kind != KindReady || r.policy != domain.FetchPolicyStoreOnly || !r.snapshot.IsMissingData {
		return nil
	}
	return zerr.With(zerr.Wrap(domain.ErrMissingData, "store cannot satisfy the query"), "data_id", r.snapshot.Selector.DataID)
}
