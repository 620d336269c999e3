package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/knit/internal/adapters/config"
	"go.trai.ch/knit/internal/adapters/fs"
	"go.trai.ch/knit/internal/adapters/logger"
	"go.trai.ch/knit/internal/adapters/manifest"
	"go.trai.ch/knit/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized application components the CLI needs.
type Components struct {
	App      *App
	Logger   ports.Logger
	Defaults *config.Loader
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			fs.NodeID,
			manifest.NodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			disk, err := graft.Dep[ports.DiskInterface](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			defaults, err := graft.Dep[*config.Loader](ctx)
			if err != nil {
				return nil, err
			}
			return New(log, disk, loader, defaults), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			defaults, err := graft.Dep[*config.Loader](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log, Defaults: defaults}, nil
		},
	})
}
