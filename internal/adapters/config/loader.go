// Package config loads the driver configuration from .shade.yaml.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Filename is the configuration file looked up in the working directory.
const Filename = ".shade.yaml"

// Defaults applied for anything the file leaves unset.
const (
	defaultBudgetBytes   = int64(64 << 20) // 64 MiB
	defaultTargetProfile = "generic"
	defaultSPIRVVersion  = "1.3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader for .shade.yaml files.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads dir/.shade.yaml and resolves it against defaults. A missing
// file yields the default configuration.
func (l *Loader) Load(dir string) (*domain.Config, error) {
	cfg := &domain.Config{
		CacheEnabled:     true,
		CacheDir:         domain.DefaultCacheDir,
		CacheBudgetBytes: defaultBudgetBytes,
		TargetProfile:    defaultTargetProfile,
		TargetVersion:    defaultSPIRVVersion,
	}

	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path) //nolint:gosec // Path is the caller's working directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	if file.Cache.Enabled != nil {
		cfg.CacheEnabled = *file.Cache.Enabled
	}
	if file.Cache.Dir != "" {
		cfg.CacheDir = file.Cache.Dir
	}
	if file.Cache.BudgetBytes != 0 {
		cfg.CacheBudgetBytes = file.Cache.BudgetBytes
	}
	if file.Parallelism > 0 {
		cfg.Parallelism = file.Parallelism
	}
	if file.Target.Profile != "" {
		cfg.TargetProfile = file.Target.Profile
	}
	if file.Target.SPIRVVersion != "" {
		cfg.TargetVersion = file.Target.SPIRVVersion
	}
	return cfg, nil
}
