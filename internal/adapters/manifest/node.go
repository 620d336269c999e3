package manifest

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/knit/internal/adapters/fs"
	"go.trai.ch/knit/internal/core/ports"
)

// NodeID is the unique identifier for the manifest loader Graft node.
const NodeID graft.ID = "adapter.manifest_loader"

func init() {
	graft.Register(graft.Node[ports.ManifestLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.NodeID},
		Run: func(ctx context.Context) (ports.ManifestLoader, error) {
			disk, err := graft.Dep[ports.DiskInterface](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(disk), nil
		},
	})
}
