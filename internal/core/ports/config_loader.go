package ports

import "go.trai.ch/shade/internal/core/domain"

// ConfigLoader resolves the driver configuration for a working directory.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration rooted at dir, applying defaults for
	// anything unset. A missing config file is not an error.
	Load(dir string) (*domain.Config, error)
}
