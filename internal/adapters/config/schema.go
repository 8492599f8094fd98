package config

// File represents the structure of the .shade.yaml configuration file.
type File struct {
	Version     string    `yaml:"version"`
	Cache       CacheDTO  `yaml:"cache"`
	Target      TargetDTO `yaml:"target"`
	Parallelism int       `yaml:"parallelism"`
}

// CacheDTO configures the shader result cache.
type CacheDTO struct {
	// Enabled toggles the cache. Defaults to true when unset.
	Enabled *bool `yaml:"enabled"`
	// Dir is where persisted cache images are stored.
	Dir string `yaml:"dir"`
	// BudgetBytes caps cumulative compiled blob bytes per cache.
	BudgetBytes int64 `yaml:"budgetBytes"`
}

// TargetDTO configures code generation defaults.
type TargetDTO struct {
	// Profile names the device variant to generate code for.
	Profile string `yaml:"profile"`
	// SPIRVVersion is the SPIR-V version to target.
	SPIRVVersion string `yaml:"spirvVersion"`
}
