// Package store implements an in-memory normalized record store.
package store

import (
	"reflect"
	"sort"
	"sync"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
)

// Store holds normalized records. Data stays in the store while some operation retains it; the last
// release of a retain triggers a mark-and-sweep from every still-retained operation.
type Store struct {
	logger ports.Logger

	mu            sync.Mutex
	records       map[string]*record
	epoch         uint64
	invalidatedAt uint64
	retains       map[domain.Identity]*retention
	subs          map[uint64]*subscription
	nextSub       uint64
}

type retention struct {
	op    domain.OperationDescriptor
	count int
}

type subscription struct {
	snapshot domain.Snapshot
	fn       func(domain.Snapshot)
}

type notification struct {
	fn       func(domain.Snapshot)
	snapshot domain.Snapshot
}

// New creates an empty Store.
func New(logger ports.Logger) *Store {
	return &Store{
		logger:  logger,
		records: make(map[string]*record),
		retains: make(map[domain.Identity]*retention),
		subs:    make(map[uint64]*subscription),
	}
}

// Publish normalizes data read through sel into the store and notifies subscribers whose data
// changed.
func (s *Store) Publish(sel domain.Selector, data map[string]any) {
	s.mu.Lock()
	s.epoch++
	n := &normalizer{
		records:   s.records,
		fragments: sel.Fragments,
		vars:      sel.Variables,
		epoch:     s.epoch,
		updated:   make(map[string]struct{}),
	}
	n.normalize(sel.DataID, sel.Selections, data)
	pending := s.affected(n.updated)
	s.mu.Unlock()

	s.logger.Debug("published payload", "records", len(n.updated), "notify", len(pending))
	for _, p := range pending {
		p.fn(p.snapshot)
	}
}

// affected re-reads every subscription that saw one of the updated records and returns those whose
// data changed. Callers hold s.mu.
func (s *Store) affected(updated map[string]struct{}) []notification {
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var pending []notification
	for _, id := range ids {
		sub := s.subs[id]
		if !overlaps(sub.snapshot.SeenRecords, updated) {
			continue
		}
		next := newReader(s.records, sub.snapshot.Selector).read(sub.snapshot.Selector)
		if next.IsMissingData == sub.snapshot.IsMissingData && reflect.DeepEqual(next.Data, sub.snapshot.Data) {
			sub.snapshot.SeenRecords = next.SeenRecords
			continue
		}
		sub.snapshot = next
		pending = append(pending, notification{fn: sub.fn, snapshot: next})
	}
	return pending
}

func overlaps(seen, updated map[string]struct{}) bool {
	if len(seen) > len(updated) {
		seen, updated = updated, seen
	}
	for id := range seen {
		if _, ok := updated[id]; ok {
			return true
		}
	}
	return false
}

// Lookup reads sel from the store.
func (s *Store) Lookup(sel domain.Selector) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newReader(s.records, sel).read(sel)
}

// Check reports whether the store holds all of op's data, and whether any of it was invalidated.
func (s *Store) Check(op domain.OperationDescriptor) domain.Availability {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := newReader(s.records, op.Root)
	r.read(op.Root)
	switch {
	case r.missing:
		return domain.Availability{Status: domain.Unavailable}
	case s.invalidatedAt > 0 && r.oldest <= s.invalidatedAt:
		return domain.Availability{Status: domain.Stale}
	default:
		return domain.Availability{Status: domain.Available}
	}
}

// Subscribe calls fn with a fresh snapshot whenever a publish changes the data visible through
// snapshot. fn runs outside the store lock.
func (s *Store) Subscribe(snapshot domain.Snapshot, fn func(domain.Snapshot)) ports.Disposable {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	sub := &subscription{snapshot: snapshot, fn: fn}
	s.subs[id] = sub
	// Catch up with publishes that landed between the caller's read and this subscription.
	next := newReader(s.records, snapshot.Selector).read(snapshot.Selector)
	changed := next.IsMissingData != snapshot.IsMissingData || !reflect.DeepEqual(next.Data, snapshot.Data)
	sub.snapshot = next
	s.mu.Unlock()

	if changed {
		fn(next)
	}

	var once sync.Once
	return ports.DisposableFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	})
}

// Retain keeps the records reachable from op alive until the returned disposable is disposed.
func (s *Store) Retain(op domain.OperationDescriptor) ports.Disposable {
	s.mu.Lock()
	r, ok := s.retains[op.Identity]
	if !ok {
		r = &retention{op: op}
		s.retains[op.Identity] = r
	}
	r.count++
	s.mu.Unlock()

	var once sync.Once
	return ports.DisposableFunc(func() {
		once.Do(func() { s.release(op.Identity) })
	})
}

func (s *Store) release(id domain.Identity) {
	s.mu.Lock()
	r, ok := s.retains[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	r.count--
	if r.count > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.retains, id)
	collected := s.collect()
	s.mu.Unlock()

	if collected > 0 {
		s.logger.Debug("collected records", "operation", id.String(), "count", collected)
	}
}

// collect deletes every record unreachable from a retained operation. Callers hold s.mu.
func (s *Store) collect() int {
	live := make(map[string]struct{}, len(s.records))
	for _, r := range s.retains {
		mark(s.records, r.op.Root, live)
	}

	collected := 0
	for id := range s.records {
		if _, ok := live[id]; !ok {
			delete(s.records, id)
			collected++
		}
	}
	return collected
}

// Invalidate marks every record currently in the store as stale.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidatedAt = s.epoch
}

// RetainCount returns the number of live retains on the operation identity.
func (s *Store) RetainCount(id domain.Identity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.retains[id]; ok {
		return r.count
	}
	return 0
}

// RecordIDs returns the sorted IDs of all records in the store.
func (s *Store) RecordIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Source returns a copy of the raw records keyed by data ID.
func (s *Store) Source() map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]any, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.clone()
	}
	return out
}
