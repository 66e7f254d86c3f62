package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.trai.ch/tether/internal/adapters/store"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/engine/host"
	"go.trai.ch/zerr"
)

// session plays the steps of one scenario against a running host.
type session struct {
	scenario *domain.Scenario
	host     *host.Host
	store    *store.Store
	out      io.Writer

	roots map[string]*host.Root
	props map[string]host.Props
	order []string
}

func newSession(scenario *domain.Scenario, h *host.Host, st *store.Store, out io.Writer) *session {
	return &session{
		scenario: scenario,
		host:     h,
		store:    st,
		out:      out,
		roots:    make(map[string]*host.Root),
		props:    make(map[string]host.Props),
	}
}

func (s *session) play(ctx context.Context) error {
	for i, step := range s.scenario.Steps {
		if err := s.apply(ctx, step); err != nil {
			return zerr.With(zerr.With(err, "step", i+1), "kind", string(step.Kind))
		}
		s.report(i+1, step)
	}
	return nil
}

func (s *session) apply(ctx context.Context, step domain.Step) error {
	switch step.Kind {
	case domain.StepMount:
		return s.mount(ctx, step.Component)
	case domain.StepUpdate:
		return s.update(ctx, step)
	case domain.StepUnmount:
		return s.unmount(ctx, step.Component)
	case domain.StepSettle:
		return s.host.Settle(ctx)
	case domain.StepSleep:
		return sleep(ctx, step.Duration)
	case domain.StepInvalidate:
		s.store.Invalidate()
		return nil
	default:
		return zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "unknown step"), "kind", string(step.Kind))
	}
}

func (s *session) mount(ctx context.Context, name string) error {
	if _, ok := s.roots[name]; ok {
		return zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "component already mounted"), "component", name)
	}
	spec, ok := s.scenario.Components[name]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrUnknownComponent, "component not declared"), "component", name)
	}

	op, err := domain.NewOperationDescriptor(spec.Request, spec.Variables)
	if err != nil {
		return err
	}
	props := host.Props{Query: op, FetchPolicy: spec.FetchPolicy}

	var root *host.Root
	if err := s.host.Do(ctx, func() {
		root = s.host.Mount(ctx, name, props, renderPath(spec.Render))
	}); err != nil {
		return err
	}
	s.roots[name] = root
	s.props[name] = props
	s.order = append(s.order, name)
	return nil
}

func (s *session) update(ctx context.Context, step domain.Step) error {
	root, ok := s.roots[step.Component]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "component not mounted"), "component", step.Component)
	}

	props := s.props[step.Component]
	if step.Variables != nil {
		op, err := domain.NewOperationDescriptor(props.Query.Request, step.Variables)
		if err != nil {
			return err
		}
		props.Query = op
	}
	if step.FetchPolicy != "" {
		props.FetchPolicy = step.FetchPolicy
	}

	if err := s.host.Do(ctx, func() { root.SetProps(ctx, props) }); err != nil {
		return err
	}
	s.props[step.Component] = props
	return nil
}

func (s *session) unmount(ctx context.Context, name string) error {
	root, ok := s.roots[name]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "component not mounted"), "component", name)
	}
	if err := s.host.Do(ctx, root.Unmount); err != nil {
		return err
	}
	delete(s.roots, name)
	delete(s.props, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *session) report(n int, step domain.Step) {
	header := fmt.Sprintf("step %d: %s", n, step.Kind)
	if step.Component != "" {
		header += " " + step.Component
	}
	_, _ = fmt.Fprintln(s.out, header)

	for _, name := range s.order {
		output := strings.TrimRight(s.roots[name].Output(), "\n")
		output = strings.ReplaceAll(output, "\n", "\n    ")
		_, _ = fmt.Fprintf(s.out, "  %s: %s\n", name, output)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
