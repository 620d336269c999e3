package ports

import "go.trai.ch/knit/internal/core/domain"

// LogEntry is the persistent record for one output path.
type LogEntry struct {
	Output      string
	CommandHash uint64
	StartTime   domain.TimeStamp
	EndTime     domain.TimeStamp
}

// BuildLog records, for each output, the hash of the command that produced
// it, enabling detection of changed commands even when timestamps are intact.
//
//go:generate mockgen -source=buildlog.go -destination=mocks/mock_buildlog.go -package=mocks
type BuildLog interface {
	// Lookup returns the latest entry for an output path, or nil.
	Lookup(output string) *LogEntry

	// RecordCommand appends one entry per output of edge and flushes it.
	RecordCommand(edge *domain.Edge, start, end domain.TimeStamp) error

	// HashCommand hashes a fully-evaluated command string with the same
	// function used for persisted entries, so the dirtiness analyzer and the
	// log always agree.
	HashCommand(command string) uint64

	// Close releases the underlying file.
	Close() error
}
