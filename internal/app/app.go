// Package app implements the application layer for tether.
package app

import (
	"context"
	"io"

	"go.trai.ch/tether/internal/adapters/environment"
	"go.trai.ch/tether/internal/adapters/network"
	"go.trai.ch/tether/internal/adapters/store"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/tether/internal/engine/fetch"
	"go.trai.ch/tether/internal/engine/host"
	"go.trai.ch/tether/internal/engine/resource"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App runs scenarios against the query cache.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	telemetry    ports.Telemetry
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, logger ports.Logger, telemetry ports.Telemetry) *App {
	return &App{
		configLoader: loader,
		logger:       logger,
		telemetry:    telemetry,
	}
}

// Run loads the scenario at path, plays its steps and writes what every mounted component renders
// after each step to out.
func (a *App) Run(ctx context.Context, path string, out io.Writer) error {
	scenario, err := a.configLoader.Load(path)
	if err != nil {
		return zerr.Wrap(err, "failed to load scenario")
	}

	st := store.New(a.logger)
	env := environment.New(st, network.NewFixtureNetwork(scenario.Responses, a.logger,
		network.WithRateLimit(scenario.Settings.RateLimit),
	), a.logger)
	for _, seed := range scenario.Seeds {
		env.CommitPayload(seed.Operation, seed.Data)
	}

	coordinator := fetch.NewCoordinator(env, a.logger, a.telemetry)
	cache := resource.New(coordinator, env, a.logger, resource.WithGraceDelay(scenario.Settings.GraceDelay))
	defer cache.Close()

	h := host.New(cache, env, a.logger,
		host.WithFallback(scenario.Settings.Fallback),
		host.WithChurnThreshold(scenario.Settings.ChurnThreshold),
	)

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Run(loopCtx)
	})
	g.Go(func() error {
		defer stopLoop()
		s := newSession(scenario, h, st, out)
		return s.play(gctx)
	})

	if err := g.Wait(); err != nil {
		return zerr.Wrap(err, "scenario failed")
	}

	a.logger.Info("scenario finished",
		"steps", len(scenario.Steps),
		"cache_entries", cache.Len(),
		"records", len(st.RecordIDs()),
	)
	return nil
}
