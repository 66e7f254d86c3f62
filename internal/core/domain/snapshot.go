package domain

import "strings"

// Snapshot is the result of reading a selector from the store.
type Snapshot struct {
	Selector      Selector
	Data          map[string]any
	IsMissingData bool
	// SeenRecords holds every data ID visited while reading, used to route store notifications.
	SeenRecords map[string]struct{}
}

// AvailabilityStatus reports how well the store satisfies an operation.
type AvailabilityStatus string

const (
	// Available means every field of the operation is present and fresh.
	Available AvailabilityStatus = "available"
	// Stale means every field is present but some record was invalidated since it was written.
	Stale AvailabilityStatus = "stale"
	// Unavailable means at least one field is missing.
	Unavailable AvailabilityStatus = "unavailable"
)

// Availability is the result of checking an operation against the store.
type Availability struct {
	Status AvailabilityStatus
}

// PayloadError is a GraphQL error carried by a response payload.
type PayloadError struct {
	Message string
	Path    []any
}

// Payload is one response emitted by a request execution.
type Payload struct {
	Data   map[string]any
	Errors []PayloadError
}

// ErrorMessage joins the payload's error messages.
func (p Payload) ErrorMessage() string {
	msgs := make([]string, 0, len(p.Errors))
	for _, e := range p.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
