package domain

import "go.trai.ch/zerr"

var (
	// ErrFetchFailed is returned when a network or store execution fails.
	ErrFetchFailed = zerr.New("fetch failed")

	// ErrMissingData is returned when a store-only read finds the data unavailable.
	ErrMissingData = zerr.New("missing data for store-only read")

	// ErrIdentityChurn flags a call site whose operation identity changes on every render.
	// It is reported for diagnostics only; the caller has to stabilize its inputs.
	ErrIdentityChurn = zerr.New("operation identity changes on every render")

	// ErrUnitAbandoned is the terminal error of a unit of work cancelled before it settled.
	ErrUnitAbandoned = zerr.New("unit of work abandoned")

	// ErrInvalidFetchPolicy is returned for an unknown fetch policy name.
	ErrInvalidFetchPolicy = zerr.New("invalid fetch policy")

	// ErrInvalidQuery is returned when a query document cannot be compiled.
	ErrInvalidQuery = zerr.New("invalid query document")

	// ErrUnknownQuery is returned when a scenario references an undeclared query.
	ErrUnknownQuery = zerr.New("unknown query")

	// ErrUnknownComponent is returned when a scenario step references an undeclared component.
	ErrUnknownComponent = zerr.New("unknown component")

	// ErrNoResponse is returned by the fixture network when no response matches an operation.
	ErrNoResponse = zerr.New("no response registered for operation")

	// ErrInvalidScenario is returned when a scenario file is structurally invalid.
	ErrInvalidScenario = zerr.New("invalid scenario")
)
