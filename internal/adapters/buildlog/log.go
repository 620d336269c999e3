// Package buildlog implements the persistent build record store: one entry
// per output path, carrying the hash of the command that produced it.
package buildlog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	fileSignature = "# knit log v1"

	// compactionRatio triggers a rewrite when on-disk records exceed this
	// multiple of the live entries.
	compactionRatio = 2
	// compactionMinRecords keeps tiny logs from being rewritten constantly.
	compactionMinRecords = 1000
)

var _ ports.BuildLog = (*Log)(nil)

// Log is the on-disk build log. Records are append-only text lines; the
// latest record for each output wins. While a build runs the file stays open
// in append mode and every entry is flushed as its edge completes, so a crash
// loses at most the in-flight edges.
type Log struct {
	logger  ports.Logger
	entries map[string]*ports.LogEntry
	file    *os.File
}

// New creates an empty, in-memory log. Load and OpenForWrite attach it to a
// file; without them it still serves Lookup/RecordCommand, which the engine
// tests rely on.
func New(logger ports.Logger) *Log {
	return &Log{
		logger:  logger,
		entries: make(map[string]*ports.LogEntry),
	}
}

// HashCommand hashes a fully-evaluated command string.
func (l *Log) HashCommand(command string) uint64 {
	return xxhash.Sum64String(command)
}

// Lookup returns the latest entry for an output path, or nil.
func (l *Log) Lookup(output string) *ports.LogEntry {
	return l.entries[output]
}

// Load streams the log at path into memory. A missing file is an empty log.
// The log is truncated at the first malformed line; whatever followed is
// dropped, which keeps a crash-corrupted tail from wedging future builds.
func (l *Log) Load(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path derives from builddir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to read build log"), "path", path)
	}

	offset, records := l.parse(data, path)
	if offset < len(data) {
		l.logger.Warn(fmt.Sprintf("build log %s is corrupt at byte %d; truncating", path, offset))
		if err := os.Truncate(path, int64(offset)); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to truncate corrupt build log"), "path", path)
		}
	}

	if records > compactionMinRecords && records > compactionRatio*len(l.entries) {
		if err := l.recompact(path); err != nil {
			return err
		}
	}
	return nil
}

// parse consumes records until the first malformed line. It returns the byte
// offset of the first unconsumed line and the number of records read.
func (l *Log) parse(data []byte, path string) (int, int) {
	offset := 0
	records := 0

	line, rest, _ := bytes.Cut(data, []byte{'\n'})
	if len(data) == 0 {
		return 0, 0
	}
	if string(line) != fileSignature {
		l.logger.Warn(fmt.Sprintf("build log %s has an unrecognized header; ignoring it", path))
		return 0, 0
	}
	offset += len(line) + 1

	for len(rest) > 0 {
		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		entry, ok := parseRecord(string(line))
		if !ok {
			return offset, records
		}
		l.entries[entry.Output] = entry
		offset += len(line) + 1
		records++
	}
	return offset, records
}

func parseRecord(line string) (*ports.LogEntry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return nil, false
	}
	start, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, false
	}
	end, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || fields[2] == "" {
		return nil, false
	}
	hash, err := strconv.ParseUint(fields[3], 16, 64)
	if err != nil {
		return nil, false
	}
	return &ports.LogEntry{
		Output:      fields[2],
		CommandHash: hash,
		StartTime:   domain.TimeStamp(start),
		EndTime:     domain.TimeStamp(end),
	}, true
}

// OpenForWrite opens path in append mode for the duration of a build,
// writing the signature line first when the file is new.
func (l *Log) OpenForWrite(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return zerr.Wrap(err, "failed to create build log directory")
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec // builddir path
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open build log"), "path", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to stat build log")
	}
	if info.Size() == 0 {
		if _, err := fmt.Fprintln(f, fileSignature); err != nil {
			_ = f.Close()
			return zerr.Wrap(err, "failed to write build log header")
		}
	}
	l.file = f
	return nil
}

// RecordCommand appends one entry per output of edge and flushes it.
func (l *Log) RecordCommand(edge *domain.Edge, start, end domain.TimeStamp) error {
	hash := l.HashCommand(edge.EvaluateCommand())
	for _, out := range edge.Outputs {
		entry := &ports.LogEntry{
			Output:      out.Path.String(),
			CommandHash: hash,
			StartTime:   start,
			EndTime:     end,
		}
		l.entries[entry.Output] = entry
		if l.file != nil {
			if err := writeRecord(l.file, entry); err != nil {
				return zerr.Wrap(err, "failed to append build log record")
			}
		}
	}
	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return zerr.Wrap(err, "failed to flush build log")
		}
	}
	return nil
}

func writeRecord(f *os.File, e *ports.LogEntry) error {
	_, err := fmt.Fprintf(f, "%d\t%d\t%s\t%016x\n", e.StartTime, e.EndTime, e.Output, e.CommandHash)
	return err
}

// recompact rewrites the log with only the live entries, via a temporary
// file and an atomic rename.
func (l *Log) recompact(path string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // builddir path
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary build log")
	}
	if _, err := fmt.Fprintln(f, fileSignature); err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to write build log header")
	}
	for _, entry := range l.entries {
		if err := writeRecord(f, entry); err != nil {
			_ = f.Close()
			return zerr.Wrap(err, "failed to rewrite build log record")
		}
	}
	if err := f.Close(); err != nil {
		return zerr.Wrap(err, "failed to close temporary build log")
	}
	if err := os.Rename(tmp, path); err != nil {
		return zerr.Wrap(err, "failed to replace build log")
	}
	return nil
}

// Close releases the append handle.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
