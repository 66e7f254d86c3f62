package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/tether/internal/adapters/telemetry/progrock"
	"go.trai.ch/tether/internal/core/ports"
	"go.trai.ch/zerr"
)

// NodeID is the unique identifier for the telemetry adapter Graft node.
const NodeID graft.ID = "adapter.telemetry"

const (
	// ModeEnv selects the telemetry backend: noop, progrock or otel.
	ModeEnv = "TETHER_TELEMETRY"
	// EndpointEnv is the OTLP gRPC endpoint used by the otel backend.
	EndpointEnv = "TETHER_OTLP_ENDPOINT"
)

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Telemetry, error) {
			return FromEnv(ctx, os.Getenv(ModeEnv), os.Getenv(EndpointEnv))
		},
	})
}

// FromEnv builds the telemetry backend named by mode.
func FromEnv(ctx context.Context, mode, endpoint string) (ports.Telemetry, error) {
	switch mode {
	case "", "noop":
		return NewNoOp(), nil
	case "progrock":
		return progrock.New(), nil
	case "otel":
		return Setup(ctx, endpoint, "tether")
	default:
		return nil, zerr.With(zerr.New("unknown telemetry mode"), "mode", mode)
	}
}
