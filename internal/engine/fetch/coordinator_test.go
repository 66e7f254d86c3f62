package fetch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tether/internal/adapters/graphql"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/core/ports/mocks"
	"go.trai.ch/tether/internal/engine/fetch"
	"go.uber.org/mock/gomock"
)

type coordinatorTestMocks struct {
	env    *mocks.MockEnvironment
	vertex *mocks.MockVertex
}

// setupCoordinatorTest creates a coordinator and common mocks.
func setupCoordinatorTest(t *testing.T) (*fetch.Coordinator, coordinatorTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := coordinatorTestMocks{
		env:    mocks.NewMockEnvironment(ctrl),
		vertex: mocks.NewMockVertex(ctrl),
	}

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

	// Default optimistic mocks to reduce noise in specific tests.
	m.vertex.EXPECT().Log(gomock.Any(), gomock.Any()).AnyTimes()
	m.vertex.EXPECT().Complete(gomock.Any()).AnyTimes()

	tel := mocks.NewMockTelemetry(ctrl)
	// Record has variadic signature: Record(ctx, name, ...opts).
	tel.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
			return ctx, m.vertex
		},
	).AnyTimes()

	return fetch.NewCoordinator(m.env, logger, tel), m
}

func operation(t *testing.T, id string) domain.OperationDescriptor {
	t.Helper()
	req, err := graphql.Compile("UserQuery", `query UserQuery($id: ID) { node(id: $id) { id name } }`)
	require.NoError(t, err)
	op, err := domain.NewOperationDescriptor(req, domain.Variables{"id": id})
	require.NoError(t, err)
	return op
}

// fakeStream captures the sink of each subscription so tests can drive it.
type fakeStream struct {
	sinks    []ports.Sink
	disposed int
	onSub    func(ports.Sink)
}

func (s *fakeStream) Subscribe(sink ports.Sink) ports.Disposable {
	s.sinks = append(s.sinks, sink)
	if s.onSub != nil {
		s.onSub(sink)
	}
	return ports.DisposableFunc(func() { s.disposed++ })
}

func (s *fakeStream) sink(t *testing.T) ports.Sink {
	t.Helper()
	require.Len(t, s.sinks, 1)
	return s.sinks[0]
}

func TestCoordinator_NetworkOnlyDeduplicates(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	stream := &fakeStream{}
	m.env.EXPECT().Execute(gomock.Any(), op).Return(stream).Times(1)

	first := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)
	second := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)

	assert.Same(t, first, second)
	assert.Equal(t, fetch.Pending, first.State())
	assert.True(t, first.StreamOpen())

	stream.sink(t).Next(domain.Payload{})
	assert.Equal(t, fetch.Resolved, first.State())
	assert.True(t, first.StreamOpen(), "stream stays open until it completes")

	stream.sink(t).Complete()
	assert.False(t, first.StreamOpen())
	assert.Equal(t, 1, stream.disposed)
}

func TestCoordinator_NewExecutionAfterSettle(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	first, second := &fakeStream{}, &fakeStream{}
	gomock.InOrder(
		m.env.EXPECT().Execute(gomock.Any(), op).Return(first),
		m.env.EXPECT().Execute(gomock.Any(), op).Return(second),
	)

	u1 := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)
	first.sink(t).Complete()
	u2 := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)

	assert.NotSame(t, u1, u2)
	assert.Equal(t, fetch.Pending, u2.State())
}

func TestCoordinator_StoreOnlyNeverExecutes(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	m.vertex.EXPECT().Cached().Times(1)

	u := c.Start(context.Background(), operation(t, "1"), domain.FetchPolicyStoreOnly)

	assert.Equal(t, fetch.Resolved, u.State())
	select {
	case <-u.Done():
	default:
		t.Fatal("store-only unit should be settled")
	}
}

func TestCoordinator_StoreOrNetwork(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		c, m := setupCoordinatorTest(t)
		op := operation(t, "1")
		m.env.EXPECT().Check(op).Return(domain.Availability{Status: domain.Available})
		m.vertex.EXPECT().Cached()

		u := c.Start(context.Background(), op, domain.FetchPolicyStoreOrNetwork)
		assert.Equal(t, fetch.Resolved, u.State())
		assert.False(t, u.StreamOpen())
	})

	t.Run("unavailable", func(t *testing.T) {
		c, m := setupCoordinatorTest(t)
		op := operation(t, "1")
		m.env.EXPECT().Check(op).Return(domain.Availability{Status: domain.Unavailable})
		m.env.EXPECT().Execute(gomock.Any(), op).Return(&fakeStream{})

		u := c.Start(context.Background(), op, domain.FetchPolicyStoreOrNetwork)
		assert.Equal(t, fetch.Pending, u.State())
	})

	t.Run("stale", func(t *testing.T) {
		c, m := setupCoordinatorTest(t)
		op := operation(t, "1")
		stream := &fakeStream{}
		m.env.EXPECT().Check(op).Return(domain.Availability{Status: domain.Stale})
		m.env.EXPECT().Execute(gomock.Any(), op).Return(stream)
		m.vertex.EXPECT().Cached()

		u := c.Start(context.Background(), op, domain.FetchPolicyStoreOrNetwork)
		assert.Equal(t, fetch.Resolved, u.State())
		assert.True(t, u.StreamOpen(), "refresh runs in the background")

		stream.sink(t).Complete()
		assert.False(t, u.StreamOpen())
	})
}

func TestCoordinator_Error(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	stream := &fakeStream{}
	m.env.EXPECT().Execute(gomock.Any(), op).Return(stream)

	u := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)

	called := 0
	u.OnSettle(func() { called++ })

	boom := errors.New("boom")
	stream.sink(t).Error(boom)

	assert.Equal(t, fetch.Errored, u.State())
	require.ErrorIs(t, u.Err(), domain.ErrFetchFailed)
	require.ErrorIs(t, u.Err(), boom)
	assert.Equal(t, 1, called)
	assert.Equal(t, 1, stream.disposed)
}

func TestCoordinator_SynchronousStream(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	stream := &fakeStream{onSub: func(sink ports.Sink) {
		sink.Next(domain.Payload{})
		sink.Complete()
	}}
	m.env.EXPECT().Execute(gomock.Any(), op).Return(stream)

	u := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)

	assert.Equal(t, fetch.Resolved, u.State())
	assert.False(t, u.StreamOpen())
	assert.Equal(t, 1, stream.disposed, "subscription returned after completion is disposed")
}

func TestUnit_WaitersRunInOrderAfterObservers(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	stream := &fakeStream{}
	m.env.EXPECT().Execute(gomock.Any(), op).Return(stream)

	u := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)

	var order []string
	u.OnSettle(func() { order = append(order, "first") })
	u.OnSettle(func() { order = append(order, "second") })
	u.Observe(func(*fetch.Unit) { order = append(order, "observer") })
	assert.Equal(t, 2, u.Waiters())

	stream.sink(t).Next(domain.Payload{})
	stream.sink(t).Next(domain.Payload{})
	assert.Equal(t, []string{"observer", "first", "second"}, order)

	u.OnSettle(func() { order = append(order, "late") })
	assert.Equal(t, []string{"observer", "first", "second", "late"}, order)
}

func TestCoordinator_Cancel(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	stream := &fakeStream{}
	m.env.EXPECT().Execute(gomock.Any(), op).Return(stream)

	u := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)

	idle := 0
	u.SetIdleHandler(func(*fetch.Unit) { idle++ })

	wait := u.OnSettle(func() { t.Fatal("withdrawn waiter must not run") })
	assert.False(t, c.Cancel(u), "an awaited unit cannot be cancelled")

	wait.Dispose()
	wait.Dispose()
	assert.Equal(t, 1, idle)

	assert.True(t, c.Cancel(u))
	assert.Equal(t, fetch.Abandoned, u.State())
	require.ErrorIs(t, u.Err(), domain.ErrUnitAbandoned)
	assert.Equal(t, 1, stream.disposed)

	// Late events from the disposed execution are ignored.
	stream.sink(t).Next(domain.Payload{})
	assert.Equal(t, fetch.Abandoned, u.State())
}

func TestCoordinator_CancelAfterAbandonStartsFresh(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	m.env.EXPECT().Execute(gomock.Any(), op).Return(&fakeStream{}).Times(2)

	u1 := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)
	require.True(t, c.Cancel(u1))

	u2 := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)
	assert.NotSame(t, u1, u2)
	assert.Equal(t, fetch.Pending, u2.State())
}

func TestCoordinator_CancelSettledClosesStream(t *testing.T) {
	c, m := setupCoordinatorTest(t)
	op := operation(t, "1")
	stream := &fakeStream{}
	m.env.EXPECT().Execute(gomock.Any(), op).Return(stream)

	u := c.Start(context.Background(), op, domain.FetchPolicyNetworkOnly)
	stream.sink(t).Next(domain.Payload{})
	require.True(t, u.StreamOpen())

	assert.True(t, c.Cancel(u))
	assert.Equal(t, fetch.Resolved, u.State())
	assert.False(t, u.StreamOpen())
	assert.Equal(t, 1, stream.disposed)
}
