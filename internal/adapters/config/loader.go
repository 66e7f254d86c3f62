// Package config loads scenario files.
package config

import (
	"errors"
	"os"
	"slices"
	"time"

	"go.trai.ch/tether/internal/adapters/graphql"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Version is the only scenario file version understood by the loader.
const Version = "1"

// Loader implements ports.ConfigLoader over YAML scenario files.
type Loader struct {
	compiler *graphql.Compiler
	logger   ports.Logger
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{
		compiler: graphql.NewCompiler(),
		logger:   logger,
	}
}

// Load reads the scenario file at path.
func (l *Loader) Load(path string) (*domain.Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read scenario file"), "path", path)
	}

	scenario, err := l.Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return scenario, nil
}

// Parse decodes a scenario document and compiles its queries.
func (l *Loader) Parse(data []byte) (*domain.Scenario, error) {
	var file ScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse scenario file")
	}
	if file.Version != "" && file.Version != Version {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "unsupported version"), "version", file.Version)
	}

	settings, err := parseSettings(file.Settings)
	if err != nil {
		return nil, err
	}

	requests, err := l.compileQueries(file.Queries)
	if err != nil {
		return nil, err
	}

	b := &builder{requests: requests}
	scenario := &domain.Scenario{
		Settings:   settings,
		Requests:   requests,
		Components: make(map[string]domain.ComponentSpec, len(file.Components)),
	}

	for i, dto := range file.Store {
		seed, err := b.seed(dto)
		if err != nil {
			return nil, zerr.With(err, "store_entry", i)
		}
		scenario.Seeds = append(scenario.Seeds, seed)
	}

	for i, dto := range file.Responses {
		resp, err := b.response(dto)
		if err != nil {
			return nil, zerr.With(err, "response", i)
		}
		scenario.Responses = append(scenario.Responses, resp)
	}

	for _, dto := range file.Components {
		if _, ok := scenario.Components[dto.Name]; ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "duplicate component"), "component", dto.Name)
		}
		spec, err := b.component(dto)
		if err != nil {
			return nil, zerr.With(err, "component", dto.Name)
		}
		scenario.Components[dto.Name] = spec
	}

	for i, dto := range file.Steps {
		step, err := parseStep(dto)
		if err != nil {
			return nil, zerr.With(err, "step", i)
		}
		if step.Component != "" {
			if _, ok := scenario.Components[step.Component]; !ok {
				return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnknownComponent, "step references an undeclared component"), "component", step.Component), "step", i)
			}
		}
		scenario.Steps = append(scenario.Steps, step)
	}

	l.logger.Debug("loaded scenario",
		"queries", len(scenario.Requests),
		"components", len(scenario.Components),
		"steps", len(scenario.Steps),
	)
	return scenario, nil
}

func (l *Loader) compileQueries(queries map[string]string) (map[string]*domain.Request, error) {
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	slices.Sort(names)

	requests := make(map[string]*domain.Request, len(queries))
	for _, name := range names {
		req, err := l.compiler.Compile(name, queries[name])
		if err != nil {
			return nil, err
		}
		requests[name] = req
	}
	return requests, nil
}

func parseSettings(dto SettingsDTO) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if dto.GraceDelay != "" {
		d, err := parseDuration(dto.GraceDelay)
		if err != nil {
			return domain.Settings{}, zerr.With(err, "grace_delay", dto.GraceDelay)
		}
		settings.GraceDelay = d
	}
	if dto.Fallback != "" {
		settings.Fallback = dto.Fallback
	}
	if dto.ChurnThreshold > 0 {
		settings.ChurnThreshold = dto.ChurnThreshold
	}
	if dto.RateLimit < 0 {
		return domain.Settings{}, zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "negative rate limit"), "rate_limit", dto.RateLimit)
	}
	settings.RateLimit = dto.RateLimit
	return settings, nil
}

type builder struct {
	requests map[string]*domain.Request
}

func (b *builder) operation(query string, vars map[string]any) (domain.OperationDescriptor, error) {
	req, ok := b.requests[query]
	if !ok {
		return domain.OperationDescriptor{}, zerr.With(zerr.Wrap(domain.ErrUnknownQuery, "query not declared"), "query", query)
	}
	return domain.NewOperationDescriptor(req, vars)
}

func (b *builder) seed(dto PayloadDTO) (domain.Seed, error) {
	op, err := b.operation(dto.Query, dto.Variables)
	if err != nil {
		return domain.Seed{}, err
	}
	return domain.Seed{Operation: op, Data: dto.Data}, nil
}

func (b *builder) response(dto ResponseDTO) (domain.Response, error) {
	op, err := b.operation(dto.Query, dto.Variables)
	if err != nil {
		return domain.Response{}, err
	}

	delay, err := parseDuration(dto.Delay)
	if err != nil {
		return domain.Response{}, zerr.With(err, "delay", dto.Delay)
	}

	payload := domain.Payload{Data: dto.Data}
	for _, e := range dto.Errors {
		payload.Errors = append(payload.Errors, domain.PayloadError{Message: e.Message, Path: e.Path})
	}
	return domain.Response{Operation: op, Delay: delay, Payload: payload}, nil
}

func (b *builder) component(dto ComponentDTO) (domain.ComponentSpec, error) {
	if dto.Name == "" {
		return domain.ComponentSpec{}, zerr.Wrap(domain.ErrInvalidScenario, "component has no name")
	}
	req, ok := b.requests[dto.Query]
	if !ok {
		return domain.ComponentSpec{}, zerr.With(zerr.Wrap(domain.ErrUnknownQuery, "component references an undeclared query"), "query", dto.Query)
	}
	policy, err := domain.ParseFetchPolicy(dto.FetchPolicy)
	if err != nil {
		return domain.ComponentSpec{}, err
	}
	return domain.ComponentSpec{
		Name:        dto.Name,
		Request:     req,
		Variables:   dto.Variables,
		FetchPolicy: policy,
		Render:      dto.Render,
	}, nil
}

func parseStep(dto StepDTO) (domain.Step, error) {
	var steps []domain.Step
	if dto.Mount != "" {
		steps = append(steps, domain.Step{Kind: domain.StepMount, Component: dto.Mount})
	}
	if dto.Update != nil {
		step := domain.Step{
			Kind:      domain.StepUpdate,
			Component: dto.Update.Component,
			Variables: dto.Update.Variables,
		}
		if dto.Update.FetchPolicy != "" {
			policy, err := domain.ParseFetchPolicy(dto.Update.FetchPolicy)
			if err != nil {
				return domain.Step{}, err
			}
			step.FetchPolicy = policy
		}
		steps = append(steps, step)
	}
	if dto.Unmount != "" {
		steps = append(steps, domain.Step{Kind: domain.StepUnmount, Component: dto.Unmount})
	}
	if dto.Settle {
		steps = append(steps, domain.Step{Kind: domain.StepSettle})
	}
	if dto.Sleep != "" {
		d, err := parseDuration(dto.Sleep)
		if err != nil {
			return domain.Step{}, zerr.With(err, "sleep", dto.Sleep)
		}
		steps = append(steps, domain.Step{Kind: domain.StepSleep, Duration: d})
	}
	if dto.Invalidate {
		steps = append(steps, domain.Step{Kind: domain.StepInvalidate})
	}

	if len(steps) != 1 {
		return domain.Step{}, zerr.With(zerr.Wrap(domain.ErrInvalidScenario, "step must set exactly one action"), "actions", len(steps))
	}
	if steps[0].Kind == domain.StepUpdate && steps[0].Component == "" {
		return domain.Step{}, zerr.Wrap(domain.ErrInvalidScenario, "update step has no component")
	}
	return steps[0], nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidScenario, err)
	}
	return d, nil
}
