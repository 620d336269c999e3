package manifest

import (
	"bytes"
	"errors"
	"io/fs"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

// fileCacheSize bounds the per-load cache of manifest file contents.
// Diamond-shaped include graphs re-read the same fragment; the cache keeps
// each fragment to one disk read without holding a whole tree of large
// generated manifests forever.
const fileCacheSize = 64

var _ ports.ManifestLoader = (*Loader)(nil)

// Loader parses a manifest (and its include/subninja closure) into a State.
type Loader struct {
	disk ports.DiskInterface

	// files is re-created per Load: the manifest may itself be rebuilt
	// between loads, so cached bytes must never outlive one parse.
	files *lru.Cache[string, []byte]
}

// NewLoader creates a Loader reading through disk.
func NewLoader(disk ports.DiskInterface) *Loader {
	return &Loader{disk: disk}
}

// Load parses the manifest at path into a fresh State.
func (l *Loader) Load(path string) (*domain.State, error) {
	files, err := lru.New[string, []byte](fileCacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create manifest file cache")
	}
	l.files = files

	state := domain.NewState()
	if err := l.loadInto(path, state, state.Bindings); err != nil {
		return nil, err
	}
	return state, nil
}

// loadInto parses one file into state under the given scope. include uses the
// including file's scope, subninja a child scope.
func (l *Loader) loadInto(path string, state *domain.State, env *domain.BindingEnv) error {
	input, err := l.readFile(path)
	if err != nil {
		return err
	}
	return newParser(l, state, env, path, input).parse()
}

func (l *Loader) readFile(path string) ([]byte, error) {
	if data, ok := l.files.Get(path); ok {
		return data, nil
	}
	data, err := l.disk.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrParse, "manifest not found"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "path", path)
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	l.files.Add(path, data)
	return data, nil
}
