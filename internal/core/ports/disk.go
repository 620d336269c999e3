// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/knit/internal/core/domain"

// DiskInterface is the narrow filesystem surface the engine consults.
// Tests inject an in-memory implementation.
//
//go:generate mockgen -source=disk.go -destination=mocks/mock_disk.go -package=mocks
type DiskInterface interface {
	// Stat returns the path's mtime in whole seconds, MTimeMissing when the
	// file does not exist.
	Stat(path string) (domain.TimeStamp, error)

	// ReadFile returns the file's contents.
	ReadFile(path string) ([]byte, error)

	// MakeDir creates the directory and any missing parents. An existing
	// directory is not an error.
	MakeDir(path string) error

	// RemoveFile deletes the file. A missing file reports fs.ErrNotExist.
	RemoveFile(path string) error
}
