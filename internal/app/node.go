package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/shade/internal/adapters/cachefile"  //nolint:depguard // Wired in app layer
	"go.trai.ch/shade/internal/adapters/compiler"   //nolint:depguard // Wired in app layer
	"go.trai.ch/shade/internal/adapters/config"     //nolint:depguard // Wired in app layer
	"go.trai.ch/shade/internal/adapters/logger"     //nolint:depguard // Wired in app layer
	"go.trai.ch/shade/internal/adapters/telemetry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports"
	"go.trai.ch/shade/internal/engine/shadercache"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			compiler.NodeID,
			shadercache.NodeID,
			cachefile.NodeID,
			logger.NodeID,
			telemetry.NodeID,
			config.ConfigNodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			comp, err := graft.Dep[ports.Compiler](ctx)
			if err != nil {
				return nil, err
			}

			manager, err := graft.Dep[*shadercache.Manager](ctx)
			if err != nil {
				return nil, err
			}

			images, err := graft.Dep[ports.ImageStore](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			return New(comp, manager, images, log, tracer, cfg), nil
		},
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.ConfigNodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    application,
		Logger: log,
		Config: cfg,
	}, nil
}
