package network_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tether/internal/adapters/graphql"
	"go.trai.ch/tether/internal/adapters/network"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func operation(t *testing.T, id string) domain.OperationDescriptor {
	t.Helper()
	req, err := graphql.Compile("UserQuery", `query UserQuery($id: ID) { node(id: $id) { id } }`)
	require.NoError(t, err)
	op, err := domain.NewOperationDescriptor(req, domain.Variables{"id": id})
	require.NoError(t, err)
	return op
}

type recorder struct {
	payloads  []domain.Payload
	err       error
	completed bool
}

func (r *recorder) sink() ports.Sink {
	return ports.Sink{
		OnNext:     func(p domain.Payload) { r.payloads = append(r.payloads, p) },
		OnError:    func(err error) { r.err = err },
		OnComplete: func() { r.completed = true },
	}
}

func TestMockNetwork_ResolveAllPendingOfRequest(t *testing.T) {
	n := network.NewMockNetwork()
	one, two := operation(t, "1"), operation(t, "2")

	var r1, r2 recorder
	n.Execute(context.Background(), one).Subscribe(r1.sink())
	n.Execute(context.Background(), two).Subscribe(r2.sink())
	assert.Equal(t, 2, n.ExecuteCount(one.Request))

	resolved := n.Resolve(one.Request, domain.Payload{Data: map[string]any{"ok": true}})
	assert.Equal(t, 2, resolved)
	assert.True(t, r1.completed)
	assert.True(t, r2.completed)
	assert.Empty(t, n.Pending())
}

func TestMockNetwork_ResolveOperation(t *testing.T) {
	n := network.NewMockNetwork()
	one, two := operation(t, "1"), operation(t, "2")

	var r1, r2 recorder
	n.Execute(context.Background(), one).Subscribe(r1.sink())
	n.Execute(context.Background(), two).Subscribe(r2.sink())

	assert.Equal(t, 1, n.ResolveOperation(two.Identity, domain.Payload{}))
	assert.False(t, r1.completed)
	assert.True(t, r2.completed)
	require.Len(t, n.Pending(), 1)
	assert.Equal(t, one.Identity, n.Pending()[0].Identity)
}

func TestMockNetwork_NextKeepsStreamOpen(t *testing.T) {
	n := network.NewMockNetwork()
	op := operation(t, "1")

	var r recorder
	n.Execute(context.Background(), op).Subscribe(r.sink())

	n.Next(op.Request, domain.Payload{})
	n.Next(op.Request, domain.Payload{})
	assert.Len(t, r.payloads, 2)
	assert.False(t, r.completed)
	assert.Len(t, n.Pending(), 1)
}

func TestMockNetwork_RejectAndCancel(t *testing.T) {
	n := network.NewMockNetwork()
	op := operation(t, "1")

	var rejected recorder
	n.Execute(context.Background(), op).Subscribe(rejected.sink())
	boom := errors.New("boom")
	n.Reject(op.Request, boom)
	assert.Equal(t, boom, rejected.err)

	var cancelled recorder
	sub := n.Execute(context.Background(), op).Subscribe(cancelled.sink())
	sub.Dispose()
	sub.Dispose()

	assert.Empty(t, n.Pending())
	assert.Len(t, n.Cancelled(), 1)
	assert.Len(t, n.Executions(), 2)
}

func newFixture(t *testing.T, responses []domain.Response, opts ...network.FixtureOption) *network.FixtureNetwork {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	return network.NewFixtureNetwork(responses, logger, opts...)
}

func TestFixtureNetwork_Immediate(t *testing.T) {
	op := operation(t, "1")
	n := newFixture(t, []domain.Response{{
		Operation: op,
		Payload:   domain.Payload{Data: map[string]any{"node": map[string]any{"id": "1"}}},
	}})

	var r recorder
	n.Execute(context.Background(), op).Subscribe(r.sink())

	require.Len(t, r.payloads, 1)
	assert.True(t, r.completed)
}

func TestFixtureNetwork_NoResponse(t *testing.T) {
	n := newFixture(t, nil)

	var r recorder
	n.Execute(context.Background(), operation(t, "1")).Subscribe(r.sink())

	require.ErrorIs(t, r.err, domain.ErrNoResponse)
}

func TestFixtureNetwork_Delay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		op := operation(t, "1")
		n := newFixture(t, []domain.Response{{Operation: op, Delay: time.Second}})

		done := make(chan struct{})
		n.Execute(context.Background(), op).Subscribe(ports.Sink{
			OnComplete: func() { close(done) },
		})

		time.Sleep(999 * time.Millisecond)
		synctest.Wait()
		select {
		case <-done:
			t.Fatal("response delivered before its delay")
		default:
		}

		time.Sleep(time.Millisecond)
		synctest.Wait()
		select {
		case <-done:
		default:
			t.Fatal("response not delivered after its delay")
		}
	})
}

func TestFixtureNetwork_DisposeCancelsDelivery(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		op := operation(t, "1")
		n := newFixture(t, []domain.Response{{Operation: op, Delay: time.Second}})

		var r recorder
		sub := n.Execute(context.Background(), op).Subscribe(r.sink())
		sub.Dispose()

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Empty(t, r.payloads)
		assert.False(t, r.completed)
		assert.NoError(t, r.err)
	})
}

func TestFixtureNetwork_ContextCancelFailsExecution(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		op := operation(t, "1")
		n := newFixture(t, []domain.Response{{Operation: op, Delay: time.Second}})

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		n.Execute(ctx, op).Subscribe(ports.Sink{
			OnError: func(err error) { errs <- err },
		})

		cancel()
		synctest.Wait()
		select {
		case err := <-errs:
			require.ErrorIs(t, err, context.Canceled)
		default:
			t.Fatal("cancelled execution never terminated")
		}
	})
}

func TestFixtureNetwork_CancelledBeforeSynchronousDelivery(t *testing.T) {
	op := operation(t, "1")
	n := newFixture(t, []domain.Response{{Operation: op}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var r recorder
	n.Execute(ctx, op).Subscribe(r.sink())
	assert.Empty(t, r.payloads)
	require.ErrorIs(t, r.err, context.Canceled)
}

func TestFixtureNetwork_RateLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		op := operation(t, "1")
		n := newFixture(t, []domain.Response{{Operation: op}}, network.WithRateLimit(1))

		var first, second recorder
		n.Execute(context.Background(), op).Subscribe(first.sink())
		n.Execute(context.Background(), op).Subscribe(second.sink())

		assert.True(t, first.completed)
		assert.False(t, second.completed, "the second execution waits for the limiter")

		time.Sleep(time.Second)
		synctest.Wait()
		assert.True(t, second.completed)
	})
}

func TestFixtureNetwork_RateLimitReturnsCancelledSlot(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		op := operation(t, "1")
		n := newFixture(t, []domain.Response{{Operation: op}}, network.WithRateLimit(1))

		var first, cancelled, third recorder
		n.Execute(context.Background(), op).Subscribe(first.sink())
		n.Execute(context.Background(), op).Subscribe(cancelled.sink()).Dispose()
		n.Execute(context.Background(), op).Subscribe(third.sink())

		time.Sleep(time.Second)
		synctest.Wait()
		assert.True(t, third.completed)
		assert.False(t, cancelled.completed)
	})
}
