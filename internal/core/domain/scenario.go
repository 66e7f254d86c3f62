package domain

import "time"

// DefaultGraceDelay is the time an unreferenced cache entry survives before it is collected.
const DefaultGraceDelay = 5 * time.Minute

// DefaultChurnThreshold is the number of consecutive uncommitted identity changes tolerated at a call
// site before identity churn is reported.
const DefaultChurnThreshold = 25

// DefaultFallback is the text a host renders for a suspended component.
const DefaultFallback = "Fallback"

// Settings tunes the cache and the render host for a scenario run.
type Settings struct {
	GraceDelay     time.Duration
	Fallback       string
	ChurnThreshold int
	// RateLimit caps fixture network executions per second; zero means unlimited.
	RateLimit float64
}

// DefaultSettings returns the settings used when a scenario omits them.
func DefaultSettings() Settings {
	return Settings{
		GraceDelay:     DefaultGraceDelay,
		Fallback:       DefaultFallback,
		ChurnThreshold: DefaultChurnThreshold,
	}
}

// Seed is a payload committed directly into the store before a run starts.
type Seed struct {
	Operation OperationDescriptor
	Data      map[string]any
}

// Response is a canned network response for one operation.
type Response struct {
	Operation OperationDescriptor
	Delay     time.Duration
	Payload   Payload
}

// ComponentSpec declares a data-bound component.
type ComponentSpec struct {
	Name        string
	Request     *Request
	Variables   Variables
	FetchPolicy FetchPolicy
	// Render is a dotted path into the snapshot data; empty renders the whole snapshot.
	Render string
}

// StepKind enumerates scenario steps.
type StepKind string

const (
	// StepMount mounts a component.
	StepMount StepKind = "mount"
	// StepUpdate changes a mounted component's variables or fetch policy.
	StepUpdate StepKind = "update"
	// StepUnmount unmounts a component.
	StepUnmount StepKind = "unmount"
	// StepSettle waits until no component is suspended.
	StepSettle StepKind = "settle"
	// StepSleep lets wall-clock time pass, e.g. to cross the grace delay.
	StepSleep StepKind = "sleep"
	// StepInvalidate marks every record in the store as stale.
	StepInvalidate StepKind = "invalidate"
)

// Step is one action of a scenario.
type Step struct {
	Kind        StepKind
	Component   string
	Variables   Variables
	FetchPolicy FetchPolicy
	Duration    time.Duration
}

// Scenario is a declarative run of the cache: what the store holds, what the network answers,
// which components exist and what happens to them.
type Scenario struct {
	Settings   Settings
	Requests   map[string]*Request
	Seeds      []Seed
	Responses  []Response
	Components map[string]ComponentSpec
	Steps      []Step
}
