package shadercache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/shade/internal/adapters/cachefile"
	"go.trai.ch/shade/internal/adapters/config"
	"go.trai.ch/shade/internal/adapters/logger"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports"
)

// NodeID is the unique identifier for the cache manager Graft node.
const NodeID graft.ID = "engine.shader_cache_manager"

func init() {
	graft.Register(graft.Node[*Manager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{cachefile.NodeID, logger.NodeID, config.ConfigNodeID},
		Run: func(ctx context.Context) (*Manager, error) {
			images, err := graft.Dep[ports.ImageStore](ctx)
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
			return NewManager(images, log, Options{BudgetBytes: cfg.CacheBudgetBytes}), nil
		},
	})
}
