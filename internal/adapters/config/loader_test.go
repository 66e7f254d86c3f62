package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tether/internal/adapters/config"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const scenario = `
version: "1"
settings:
  grace_delay: 30s
  fallback: Loading
  rate_limit: 2.5
queries:
  UserQuery: |
    query UserQuery($id: ID) { node(id: $id) { id name } }
store:
  - query: UserQuery
    variables: {id: first-render}
    data: {node: {__typename: User, id: first-render, name: Bob}}
responses:
  - query: UserQuery
    variables: {id: "1"}
    delay: 20ms
    data: {node: {__typename: User, id: "1", name: Alice}}
  - query: UserQuery
    variables: {id: "2"}
    errors:
      - message: not found
        path: [node]
components:
  - name: Profile
    query: UserQuery
    variables: {id: first-render}
    fetch_policy: store-only
    render: node.name
steps:
  - mount: Profile
  - update: {component: Profile, variables: {id: "1"}, fetch_policy: network-only}
  - settle: true
  - unmount: Profile
  - sleep: 1m
  - invalidate: true
`

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	return config.NewLoader(logger)
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	s, err := newLoader(t).Load(writeScenario(t, scenario))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, s.Settings.GraceDelay)
	assert.Equal(t, "Loading", s.Settings.Fallback)
	assert.Equal(t, domain.DefaultChurnThreshold, s.Settings.ChurnThreshold)
	assert.InDelta(t, 2.5, s.Settings.RateLimit, 1e-9)

	req := s.Requests["UserQuery"]
	require.NotNil(t, req)
	assert.Equal(t, "UserQuery", req.Name)

	require.Len(t, s.Seeds, 1)
	assert.Equal(t, domain.Variables{"id": "first-render"}, s.Seeds[0].Operation.Variables)

	require.Len(t, s.Responses, 2)
	assert.Equal(t, 20*time.Millisecond, s.Responses[0].Delay)
	assert.Equal(t, "not found", s.Responses[1].Payload.ErrorMessage())
	assert.Nil(t, s.Responses[1].Payload.Data)

	profile := s.Components["Profile"]
	assert.Same(t, req, profile.Request)
	assert.Equal(t, domain.FetchPolicyStoreOnly, profile.FetchPolicy)
	assert.Equal(t, "node.name", profile.Render)

	kinds := make([]domain.StepKind, 0, len(s.Steps))
	for _, step := range s.Steps {
		kinds = append(kinds, step.Kind)
	}
	assert.Equal(t, []domain.StepKind{
		domain.StepMount, domain.StepUpdate, domain.StepSettle,
		domain.StepUnmount, domain.StepSleep, domain.StepInvalidate,
	}, kinds)
	assert.Equal(t, domain.FetchPolicyNetworkOnly, s.Steps[1].FetchPolicy)
	assert.Equal(t, time.Minute, s.Steps[4].Duration)
}

func TestLoad_SeedAndComponentShareIdentity(t *testing.T) {
	s, err := newLoader(t).Load(writeScenario(t, scenario))
	require.NoError(t, err)

	profile := s.Components["Profile"]
	op, err := domain.NewOperationDescriptor(profile.Request, profile.Variables)
	require.NoError(t, err)
	assert.Equal(t, s.Seeds[0].Operation.Identity, op.Identity)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := newLoader(t).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{
			name:    "unsupported version",
			content: `version: "2"`,
			target:  domain.ErrInvalidScenario,
		},
		{
			name: "unknown query",
			content: `
components:
  - name: Profile
    query: Missing
`,
			target: domain.ErrUnknownQuery,
		},
		{
			name: "invalid query",
			content: `
queries:
  Broken: "query Broken { node("
`,
			target: domain.ErrInvalidQuery,
		},
		{
			name: "invalid fetch policy",
			content: `
queries:
  Q: "query Q { viewer { id } }"
components:
  - name: C
    query: Q
    fetch_policy: cache-first
`,
			target: domain.ErrInvalidFetchPolicy,
		},
		{
			name: "unknown component",
			content: `
steps:
  - mount: Nobody
`,
			target: domain.ErrUnknownComponent,
		},
		{
			name: "step with two actions",
			content: `
steps:
  - settle: true
    invalidate: true
`,
			target: domain.ErrInvalidScenario,
		},
		{
			name: "bad duration",
			content: `
settings:
  grace_delay: soon
`,
			target: domain.ErrInvalidScenario,
		},
		{
			name: "negative rate limit",
			content: `
settings:
  rate_limit: -1
`,
			target: domain.ErrInvalidScenario,
		},
		{
			name: "duplicate component",
			content: `
queries:
  Q: "query Q { viewer { id } }"
components:
  - name: C
    query: Q
  - name: C
    query: Q
`,
			target: domain.ErrInvalidScenario,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(t).Parse([]byte(tt.content))
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	s, err := newLoader(t).Parse([]byte(`queries: {Q: "query Q { viewer { id } }"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s.Settings)
	assert.Empty(t, s.Steps)
}
