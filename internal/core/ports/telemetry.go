package ports

import (
	"context"

	"go.trai.ch/tether/internal/core/domain"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Telemetry records units of work as vertices.
type Telemetry interface {
	// Record starts a new vertex and returns a context carrying it.
	Record(ctx context.Context, name string, opts ...VertexOption) (context.Context, Vertex)
	// Close flushes the recording session.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Log records a message against the vertex.
	Log(level domain.LogLevel, msg string)
	// Cached marks the vertex as served without doing the work.
	Cached()
	// Complete finishes the vertex. A nil err means success.
	Complete(err error)
}

// VertexConfig holds configuration for a vertex being started.
type VertexConfig struct {
	Attributes map[string]string
}

// VertexOption is a functional option for configuring a vertex.
type VertexOption func(*VertexConfig)

// WithAttribute attaches a key/value attribute to a vertex.
func WithAttribute(key, value string) VertexOption {
	return func(c *VertexConfig) {
		if c.Attributes == nil {
			c.Attributes = make(map[string]string)
		}
		c.Attributes[key] = value
	}
}

// NewVertexConfig applies opts to an empty configuration.
func NewVertexConfig(opts ...VertexOption) VertexConfig {
	var cfg VertexConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type vertexKey struct{}

// ContextWithVertex returns a copy of ctx carrying v.
func ContextWithVertex(ctx context.Context, v Vertex) context.Context {
	return context.WithValue(ctx, vertexKey{}, v)
}

// VertexFromContext returns the vertex stored in ctx, if any.
func VertexFromContext(ctx context.Context) (Vertex, bool) {
	v, ok := ctx.Value(vertexKey{}).(Vertex)
	return v, ok
}
