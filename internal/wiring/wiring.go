// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/knit/internal/adapters/config"
	_ "go.trai.ch/knit/internal/adapters/fs"
	_ "go.trai.ch/knit/internal/adapters/logger"
	_ "go.trai.ch/knit/internal/adapters/manifest"
	// Register the app node.
	_ "go.trai.ch/knit/internal/app"
)
