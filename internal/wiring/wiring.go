// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register all adapter nodes via their init() functions.
	_ "go.trai.ch/shade/internal/adapters/cachefile"
	_ "go.trai.ch/shade/internal/adapters/compiler"
	_ "go.trai.ch/shade/internal/adapters/config"
	_ "go.trai.ch/shade/internal/adapters/logger"
	_ "go.trai.ch/shade/internal/adapters/telemetry"
	// Register engine and app layer nodes.
	_ "go.trai.ch/shade/internal/app"
	_ "go.trai.ch/shade/internal/engine/shadercache"
)
