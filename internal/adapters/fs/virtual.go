package fs

import (
	"io/fs"
	"sort"
	"sync"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
)

var _ ports.DiskInterface = (*VirtualDisk)(nil)

type virtualFile struct {
	mtime    domain.TimeStamp
	contents string
}

// VirtualDisk is an in-memory DiskInterface with a manually advanced clock.
// Engine tests inject it so no test touches the host filesystem.
type VirtualDisk struct {
	mu    sync.Mutex
	now   domain.TimeStamp
	files map[string]virtualFile
	dirs  map[string]bool

	// removed records RemoveFile calls, in order, for assertions.
	removed []string
}

// NewVirtualDisk creates an empty disk whose clock starts at 1.
func NewVirtualDisk() *VirtualDisk {
	return &VirtualDisk{
		now:   1,
		files: make(map[string]virtualFile),
		dirs:  make(map[string]bool),
	}
}

// Tick advances the clock by one second and returns the new time.
func (v *VirtualDisk) Tick() domain.TimeStamp {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now++
	return v.now
}

// Create writes a file stamped with the current clock.
func (v *VirtualDisk) Create(path, contents string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files[path] = virtualFile{mtime: v.now, contents: contents}
}

// Stat returns the file's recorded mtime, MTimeMissing when absent.
func (v *VirtualDisk) Stat(path string) (domain.TimeStamp, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f, ok := v.files[path]; ok {
		return f.mtime, nil
	}
	return domain.MTimeMissing, nil
}

// ReadFile returns the file's contents.
func (v *VirtualDisk) ReadFile(path string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f, ok := v.files[path]; ok {
		return []byte(f.contents), nil
	}
	return nil, fs.ErrNotExist
}

// MakeDir records the directory.
func (v *VirtualDisk) MakeDir(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirs[path] = true
	return nil
}

// RemoveFile deletes the file and records the call.
func (v *VirtualDisk) RemoveFile(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.files[path]; !ok {
		return fs.ErrNotExist
	}
	delete(v.files, path)
	v.removed = append(v.removed, path)
	return nil
}

// Removed returns the paths passed to RemoveFile, in call order.
func (v *VirtualDisk) Removed() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.removed...)
}

// Paths returns every existing file path, sorted.
func (v *VirtualDisk) Paths() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	paths := make([]string, 0, len(v.files))
	for p := range v.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// MadeDir reports whether MakeDir was called for path.
func (v *VirtualDisk) MadeDir(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirs[path]
}
