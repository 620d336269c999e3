package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/knit/internal/core/ports"
)

// NodeID is the unique identifier for the disk Graft node.
const NodeID graft.ID = "adapter.disk"

func init() {
	graft.Register(graft.Node[ports.DiskInterface]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.DiskInterface, error) {
			return NewDisk(), nil
		},
	})
}
