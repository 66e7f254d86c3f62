package resource_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tether/internal/adapters/graphql"
	"go.trai.ch/tether/internal/adapters/telemetry"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/core/ports/mocks"
	"go.trai.ch/tether/internal/engine/fetch"
	"go.trai.ch/tether/internal/engine/resource"
	"go.uber.org/mock/gomock"
)

const grace = time.Minute

// retain and stream are disposed from grace timer goroutines.
type retain struct {
	mu       sync.Mutex
	disposed int
}

func (r *retain) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed++
}

func (r *retain) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

type stream struct {
	mu       sync.Mutex
	sink     ports.Sink
	disposed bool
}

func (s *stream) Subscribe(sink ports.Sink) ports.Disposable {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	return ports.DisposableFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.disposed = true
	})
}

func (s *stream) emit() ports.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *stream) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func setupCache(t *testing.T) (*resource.Cache, *mocks.MockEnvironment) {
	t.Helper()
	ctrl := gomock.NewController(t)
	env := mocks.NewMockEnvironment(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

	coordinator := fetch.NewCoordinator(env, logger, telemetry.NewNoOp())
	return resource.New(coordinator, env, logger, resource.WithGraceDelay(grace)), env
}

func operation(t *testing.T, id string) domain.OperationDescriptor {
	t.Helper()
	req, err := graphql.Compile("UserQuery", `query UserQuery($id: ID) { node(id: $id) { id name } }`)
	require.NoError(t, err)
	op, err := domain.NewOperationDescriptor(req, domain.Variables{"id": id})
	require.NoError(t, err)
	return op
}

func TestCache_AcquireDeduplicates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		r := &retain{}
		gomock.InOrder(
			env.EXPECT().Retain(op).Return(r),
			env.EXPECT().Execute(gomock.Any(), op).Return(&stream{}),
		)

		first := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		second := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)

		assert.Same(t, first, second)
		assert.Equal(t, 1, c.Len())
		stats, ok := c.Stats(op.Identity)
		require.True(t, ok)
		assert.True(t, stats.TemporaryRetain)
		assert.True(t, stats.TimerArmed)
		assert.Equal(t, fetch.Pending, stats.State)
		c.Close()
	})
}

func TestCache_TemporaryRetainExpires(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		r, s := &retain{}, &stream{}
		env.EXPECT().Retain(op).Return(r)
		env.EXPECT().Execute(gomock.Any(), op).Return(s)

		e := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		s.emit().Next(domain.Payload{})
		s.emit().Complete()
		require.Equal(t, fetch.Resolved, e.Unit().State())

		time.Sleep(grace - time.Second)
		synctest.Wait()
		assert.Equal(t, 0, r.count())

		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 1, r.count())
		assert.Equal(t, 0, c.Len())
	})
}

func TestCache_CommitUpgradesTemporaryRetain(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		r, s := &retain{}, &stream{}
		env.EXPECT().Retain(op).Return(r).Times(1)
		env.EXPECT().Execute(gomock.Any(), op).Return(s).Times(1)

		c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		s.emit().Next(domain.Payload{})

		first := c.CommitPermanent(context.Background(), op, domain.FetchPolicyNetworkOnly)
		second := c.CommitPermanent(context.Background(), op, domain.FetchPolicyNetworkOnly)

		stats, _ := c.Stats(op.Identity)
		assert.Equal(t, 2, stats.PermanentRetains)
		assert.False(t, stats.TemporaryRetain)
		assert.False(t, stats.TimerArmed)

		time.Sleep(10 * grace)
		synctest.Wait()
		assert.Equal(t, 0, r.count(), "committed entries are never collected")

		first.Dispose()
		first.Dispose()
		stats, _ = c.Stats(op.Identity)
		assert.Equal(t, 1, stats.PermanentRetains)
		assert.False(t, stats.TimerArmed)

		second.Dispose()
		stats, _ = c.Stats(op.Identity)
		assert.Equal(t, 0, stats.PermanentRetains)
		assert.True(t, stats.TimerArmed)

		time.Sleep(grace)
		synctest.Wait()
		assert.Equal(t, 1, r.count())
		assert.Equal(t, 0, c.Len())
		assert.True(t, s.isDisposed(), "collection stops the open stream")
	})
}

func TestCache_RecommitWithinGraceWindow(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		r, s := &retain{}, &stream{}
		env.EXPECT().Retain(op).Return(r).Times(1)
		env.EXPECT().Execute(gomock.Any(), op).Return(s).Times(1)

		c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		s.emit().Complete()
		c.CommitPermanent(context.Background(), op, domain.FetchPolicyNetworkOnly).Dispose()

		time.Sleep(grace / 2)
		again := c.CommitPermanent(context.Background(), op, domain.FetchPolicyNetworkOnly)

		time.Sleep(2 * grace)
		synctest.Wait()
		assert.Equal(t, 0, r.count())
		assert.Equal(t, 1, c.Len())

		again.Dispose()
		time.Sleep(grace)
		synctest.Wait()
		assert.Equal(t, 1, r.count())
	})
}

func TestCache_PendingEntrySurvivesGraceWindow(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		r, s := &retain{}, &stream{}
		env.EXPECT().Retain(op).Return(r)
		env.EXPECT().Execute(gomock.Any(), op).Return(s)

		e := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		wait := e.Unit().OnSettle(func() {})
		defer wait.Dispose()

		time.Sleep(2 * grace)
		synctest.Wait()
		assert.Equal(t, 0, r.count(), "a pending entry is never collected")

		s.emit().Complete()
		time.Sleep(grace - time.Second)
		synctest.Wait()
		assert.Equal(t, 0, r.count(), "settling starts a fresh grace window")

		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 1, r.count())
	})
}

func TestCache_IdleUnitIsAbandoned(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		r, s := &retain{}, &stream{}
		env.EXPECT().Retain(op).Return(r)
		env.EXPECT().Execute(gomock.Any(), op).Return(s)

		e := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		wait := e.Unit().OnSettle(func() {})
		wait.Dispose()

		assert.Equal(t, fetch.Abandoned, e.Unit().State())
		assert.True(t, s.isDisposed())
		assert.Equal(t, 1, r.count())
		assert.Equal(t, 0, c.Len())
	})
}

func TestCache_ErrorIsSharedUntilCollected(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		op := operation(t, "1")
		s := &stream{}
		env.EXPECT().Retain(op).Return(&retain{}).Times(2)
		env.EXPECT().Execute(gomock.Any(), op).Return(s).Times(2)

		e := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		s.emit().Error(errors.New("boom"))

		again := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		assert.Same(t, e, again)
		require.ErrorIs(t, again.Unit().Err(), domain.ErrFetchFailed)

		time.Sleep(grace)
		synctest.Wait()
		fresh := c.Acquire(context.Background(), op, domain.FetchPolicyNetworkOnly)
		assert.NotSame(t, e, fresh)
		assert.Equal(t, fetch.Pending, fresh.Unit().State())
		c.Close()
	})
}

func TestCache_DistinctIdentities(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, env := setupCache(t)
		one, two := operation(t, "1"), operation(t, "2")
		env.EXPECT().Retain(gomock.Any()).Return(&retain{}).Times(2)
		env.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(&stream{}).Times(2)

		a := c.Acquire(context.Background(), one, domain.FetchPolicyNetworkOnly)
		b := c.Acquire(context.Background(), two, domain.FetchPolicyNetworkOnly)

		assert.NotSame(t, a, b)
		assert.Equal(t, 2, c.Len())
		c.Close()
		assert.Equal(t, 0, c.Len())
	})
}
