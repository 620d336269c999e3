package ports

import "go.trai.ch/knit/internal/core/domain"

// ManifestLoader parses a build manifest (and anything it includes) into a
// fresh State. Parse errors carry file:line:col metadata.
//
//go:generate mockgen -source=loader.go -destination=mocks/mock_loader.go -package=mocks
type ManifestLoader interface {
	Load(path string) (*domain.State, error)
}
