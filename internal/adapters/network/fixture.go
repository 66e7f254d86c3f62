package network

import (
	"context"
	"sync/atomic"
	"time"

	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/time/rate"
)

// FixtureNetwork replays canned responses keyed by operation identity, after an optional delay.
type FixtureNetwork struct {
	responses map[domain.Identity]domain.Response
	logger    ports.Logger
	limiter   *rate.Limiter
}

// FixtureOption configures a FixtureNetwork.
type FixtureOption func(*FixtureNetwork)

// WithRateLimit throttles executions to perSecond, delaying responses that exceed it.
// A non-positive rate disables throttling.
func WithRateLimit(perSecond float64) FixtureOption {
	return func(n *FixtureNetwork) {
		if perSecond > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

var _ ports.Network = (*FixtureNetwork)(nil)

// NewFixtureNetwork creates a FixtureNetwork. A later response for the same operation wins.
func NewFixtureNetwork(responses []domain.Response, logger ports.Logger, opts ...FixtureOption) *FixtureNetwork {
	byID := make(map[domain.Identity]domain.Response, len(responses))
	for _, r := range responses {
		byID[r.Operation.Identity] = r
	}
	n := &FixtureNetwork{
		responses: byID,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Execute implements ports.Network.
func (n *FixtureNetwork) Execute(ctx context.Context, op domain.OperationDescriptor) ports.Stream {
	return ports.StreamFunc(func(sink ports.Sink) ports.Disposable {
		resp, ok := n.responses[op.Identity]
		if !ok {
			sink.Error(zerr.With(zerr.Wrap(domain.ErrNoResponse, "fixture has no matching response"), "operation", op.Identity.String()))
			return ports.DisposableFunc(nil)
		}

		delay := resp.Delay
		var reservation *rate.Reservation
		if n.limiter != nil {
			reservation = n.limiter.Reserve()
			delay += reservation.Delay()
		}

		// A reservation is handed back only when the response was never sent.
		var sent, disposed atomic.Bool
		ctx, cancel := context.WithCancel(ctx)
		dispose := func() {
			disposed.Store(true)
			cancel()
			if reservation != nil && !sent.Load() {
				reservation.Cancel()
			}
		}
		cancelled := func() bool {
			if ctx.Err() == nil {
				return false
			}
			if !disposed.Load() {
				sink.Error(zerr.With(zerr.Wrap(ctx.Err(), "execution cancelled"), "operation", op.Name()))
			}
			return true
		}
		if delay <= 0 {
			sent.Store(true)
			deliver(sink, resp.Payload, cancelled)
			return ports.DisposableFunc(dispose)
		}

		n.logger.Debug("delaying response", "operation", op.Name(), "delay", delay)
		go func() {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				cancelled()
				return
			case <-timer.C:
			}
			sent.Store(true)
			deliver(sink, resp.Payload, cancelled)
		}()
		return ports.DisposableFunc(dispose)
	})
}

// deliver emits payload and completes the stream unless the execution was cancelled first.
// A cancellation that did not come from the subscriber terminates the stream with an error.
func deliver(sink ports.Sink, payload domain.Payload, cancelled func() bool) {
	if cancelled() {
		return
	}
	sink.Next(payload)
	if cancelled() {
		return
	}
	sink.Complete()
}
