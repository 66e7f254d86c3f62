package config

// ScenarioFile represents the structure of a scenario YAML file.
type ScenarioFile struct {
	Version    string            `yaml:"version"`
	Settings   SettingsDTO       `yaml:"settings"`
	Queries    map[string]string `yaml:"queries"`
	Store      []PayloadDTO      `yaml:"store"`
	Responses  []ResponseDTO     `yaml:"responses"`
	Components []ComponentDTO    `yaml:"components"`
	Steps      []StepDTO         `yaml:"steps"`
}

// SettingsDTO tunes the cache and the render host.
type SettingsDTO struct {
	GraceDelay     string  `yaml:"grace_delay"`
	Fallback       string  `yaml:"fallback"`
	ChurnThreshold int     `yaml:"churn_threshold"`
	RateLimit      float64 `yaml:"rate_limit"`
}

// PayloadDTO is data committed straight into the store.
type PayloadDTO struct {
	Query     string         `yaml:"query"`
	Variables map[string]any `yaml:"variables"`
	Data      map[string]any `yaml:"data"`
}

// ResponseDTO is a canned network response.
type ResponseDTO struct {
	Query     string         `yaml:"query"`
	Variables map[string]any `yaml:"variables"`
	Delay     string         `yaml:"delay"`
	Data      map[string]any `yaml:"data"`
	Errors    []ErrorDTO     `yaml:"errors"`
}

// ErrorDTO is a GraphQL error inside a response.
type ErrorDTO struct {
	Message string `yaml:"message"`
	Path    []any  `yaml:"path"`
}

// ComponentDTO declares a data-bound component.
type ComponentDTO struct {
	Name        string         `yaml:"name"`
	Query       string         `yaml:"query"`
	Variables   map[string]any `yaml:"variables"`
	FetchPolicy string         `yaml:"fetch_policy"`
	Render      string         `yaml:"render"`
}

// StepDTO is one scenario step. Exactly one field must be set.
type StepDTO struct {
	Mount      string     `yaml:"mount"`
	Update     *UpdateDTO `yaml:"update"`
	Unmount    string     `yaml:"unmount"`
	Settle     bool       `yaml:"settle"`
	Sleep      string     `yaml:"sleep"`
	Invalidate bool       `yaml:"invalidate"`
}

// UpdateDTO changes the inputs of a mounted component.
type UpdateDTO struct {
	Component   string         `yaml:"component"`
	Variables   map[string]any `yaml:"variables"`
	FetchPolicy string         `yaml:"fetch_policy"`
}
