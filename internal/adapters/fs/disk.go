// Package fs provides the real filesystem adapter.
package fs

import (
	"errors"
	"io/fs"
	"os"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DiskInterface = (*Disk)(nil)

// Disk implements ports.DiskInterface against the host filesystem.
type Disk struct{}

// NewDisk creates a Disk.
func NewDisk() *Disk {
	return &Disk{}
}

// Stat returns the path's mtime in whole seconds, MTimeMissing if absent.
func (d *Disk) Stat(path string) (domain.TimeStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.MTimeMissing, nil
		}
		return domain.MTimeMissing, zerr.With(zerr.Wrap(err, "stat failed"), "path", path)
	}
	return domain.TimeStamp(info.ModTime().Unix()), nil
}

// ReadFile returns the file's contents.
func (d *Disk) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the manifest or CLI
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, zerr.With(zerr.Wrap(err, "read failed"), "path", path)
	}
	return data, nil
}

// MakeDir creates the directory and any missing parents.
func (d *Disk) MakeDir(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "mkdir failed"), "path", path)
	}
	return nil
}

// RemoveFile deletes the file. Missing files report fs.ErrNotExist so callers
// can treat them as already clean.
func (d *Disk) RemoveFile(path string) error {
	return os.Remove(path)
}
