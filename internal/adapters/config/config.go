// Package config loads optional tool defaults from .knit.yaml.
package config

import (
	"errors"
	"io/fs"
	"path/filepath"

	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Filename is the defaults file looked up in the working directory.
const Filename = ".knit.yaml"

// Defaults are repo-level defaults for flags the user usually leaves alone.
// Explicit command-line flags always win.
type Defaults struct {
	Jobs int `yaml:"jobs"`
	// KeepGoing of -1 means unlimited; 0 means unset.
	KeepGoing int    `yaml:"keepgoing"`
	Verbose   bool   `yaml:"verbose"`
	Status    string `yaml:"status"` // "line" or "fancy"
}

// Loader reads Defaults through the disk adapter.
type Loader struct {
	disk ports.DiskInterface
}

// NewLoader creates a Loader.
func NewLoader(disk ports.DiskInterface) *Loader {
	return &Loader{disk: disk}
}

// Load returns the defaults from dir, or zero Defaults when no file exists.
func (l *Loader) Load(dir string) (*Defaults, error) {
	path := filepath.Join(dir, Filename)
	data, err := l.disk.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Defaults{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read defaults file"), "path", path)
	}

	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse defaults file"), "path", path)
	}
	return &d, nil
}
