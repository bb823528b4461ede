package engine

import (
	"io"
	"log"
	"os"

	"kvdb/cache"
)

// DefaultCompactionThresholdBytes is the log size, in bytes, at which the
// engine initiates compaction after a mutating operation.
const DefaultCompactionThresholdBytes = 4 * 1024 * 1024

// Options configures an Engine.
type Options struct {
	// CacheCapacity is the number of values the LRU value cache holds.
	CacheCapacity int
	// CompactionThresholdBytes is the log length at which a mutating
	// operation triggers compaction.
	CompactionThresholdBytes int64
	// SyncOnWrite controls whether the engine calls Sync after every
	// mutating append. DefaultOptions sets it to true; unlike the other
	// fields, it is not filled in when left at its zero value, so an
	// Options literal that omits it disables syncing.
	SyncOnWrite bool
	// FailBusy, if true, makes Set/Remove return a Busy error instead of
	// blocking when a compaction is in progress, instead of the default
	// queueing behavior.
	FailBusy bool
	// Logger receives operational messages (torn-tail truncation,
	// compaction completion or failure). Defaults to a logger writing to
	// stderr.
	Logger *log.Logger
}

// DefaultOptions returns the engine's default configuration.
func DefaultOptions() Options {
	return Options{
		CacheCapacity:            cache.DefaultCapacity,
		CompactionThresholdBytes: DefaultCompactionThresholdBytes,
		SyncOnWrite:              true,
		Logger:                   log.New(os.Stderr, "kvdb: ", log.LstdFlags),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = d.CacheCapacity
	}
	if o.CompactionThresholdBytes <= 0 {
		o.CompactionThresholdBytes = d.CompactionThresholdBytes
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
