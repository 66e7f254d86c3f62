package ports

import "go.trai.ch/tether/internal/core/domain"

// ConfigLoader defines the interface for loading a scenario.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the scenario file at path and compiles its queries.
	Load(path string) (*domain.Scenario, error)
}
