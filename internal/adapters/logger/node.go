package logger

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

// LevelEnv names the environment variable selecting the log level.
const LevelEnv = "TETHER_LOG_LEVEL"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Logger, error) {
			return New(domain.ParseLogLevel(os.Getenv(LevelEnv))), nil
		},
	})
}
