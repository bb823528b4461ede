// Package engine implements the storage engine: the orchestrator that owns
// the log, the index, and the value cache, serializes writes, coordinates
// reads, and drives compaction.
package engine

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"kvdb/cache"
	"kvdb/fs"
	"kvdb/index"
	"kvdb/kverrors"
	"kvdb/logfile"
	"kvdb/record"
)

const compactSuffix = ".compact"

type state int32

const (
	stateOpen state = iota
	stateCompacting
	stateClosed
)

// Engine is the top-level handle to a single log-structured key-value
// store. It is safe for concurrent use by multiple goroutines.
type Engine struct {
	cfg     Options
	filesys fs.Filesys
	name    string

	// writeMu serializes Set, Remove, and compaction: at most one of them
	// runs at a time. Compaction holds it for its entire duration, per the
	// spec's compaction procedure; readers never take it.
	writeMu sync.Mutex

	// genMu guards the (log, idx) pointer pair read by Get. Compaction
	// takes it only briefly, to swap in the post-compaction log and index
	// (steps 6-7 of the compaction procedure); everything before that
	// point in a compaction runs against the old log and old index, which
	// remain valid for readers concurrently holding a RLock.
	genMu sync.RWMutex
	log   *logfile.LogFile
	idx   *index.Index

	cache *cache.Cache

	state state
}

// Open opens or creates the store at path, replaying its log to rebuild the
// index.
func Open(path string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if name == "" {
		name = "data"
	}
	filesys, err := fs.DirFs(dir)
	if err != nil {
		return nil, kverrors.New(kverrors.Io, "open", err)
	}
	return open(filesys, name, opts)
}

// OpenMem opens a store backed by an in-memory filesystem, for tests. Unlike
// Open, it defaults Logger to a discard logger rather than stderr.
func OpenMem(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return open(fs.MemFs(), "data", opts)
}

func open(filesys fs.Filesys, name string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	lf, err := logfile.Open(filesys, name)
	if err != nil {
		return nil, kverrors.New(kverrors.Io, "open", err)
	}
	idx := index.New()
	if err := replay(lf, idx, opts); err != nil {
		lf.Close()
		return nil, err
	}
	c, err := cache.New(opts.CacheCapacity)
	if err != nil {
		lf.Close()
		return nil, kverrors.New(kverrors.Io, "open", err)
	}
	return &Engine{
		cfg:     opts,
		filesys: filesys,
		name:    name,
		log:     lf,
		idx:     idx,
		cache:   c,
		state:   stateOpen,
	}, nil
}

// replay rebuilds idx by scanning lf from offset 0. Set records put the
// offset of the record itself; Remove records clear the key. A torn
// trailing record is truncated and replay stops there; genuine structural
// corruption earlier in the log is fatal.
func replay(lf *logfile.LogFile, idx *index.Index, opts Options) error {
	length := lf.Length()
	offset := int64(0)
	for offset < length {
		sec := io.NewSectionReader(lf, offset, length-offset)
		rec, n, err := record.Decode(sec)
		switch {
		case err == nil:
			if rec.IsSet {
				idx.Put(rec.Key, offset)
			} else {
				idx.Remove(rec.Key)
			}
			offset += int64(n)
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			opts.Logger.Printf("truncating torn trailing record at offset %d (log length %d)", offset, length)
			if err := lf.Truncate(offset); err != nil {
				return kverrors.New(kverrors.Io, "open", err)
			}
			return nil
		default:
			return kverrors.New(kverrors.Malformed, "open", err)
		}
	}
	return nil
}

// Set encodes a SetRecord, appends it, and updates the index and cache. It
// returns the value previously bound to k, if any.
func (e *Engine) Set(k int64, v []byte) (prev []byte, hadPrev bool, err error) {
	if err := e.acquireWriter(); err != nil {
		return nil, false, err
	}
	defer e.writeMu.Unlock()
	if e.isClosed() {
		return nil, false, kverrors.New(kverrors.Closed, "set", nil)
	}

	prev, hadPrev, err = e.previousValueLocked(k)
	if err != nil {
		return nil, false, err
	}

	rec := record.EncodeSet(k, v)
	offset, err := e.log.Append(rec)
	if err != nil {
		return nil, false, kverrors.New(kverrors.Io, "set", err)
	}
	if e.cfg.SyncOnWrite {
		if err := e.log.Sync(); err != nil {
			return nil, false, kverrors.New(kverrors.Io, "set", err)
		}
	}
	e.idx.Put(k, offset)
	e.cache.Put(k, v)

	e.maybeCompact()
	return prev, hadPrev, nil
}

// Get returns the value bound to k, if any.
func (e *Engine) Get(k int64) (value []byte, ok bool, err error) {
	if e.isClosed() {
		return nil, false, kverrors.New(kverrors.Closed, "get", nil)
	}
	if v, hit := e.cache.Get(k); hit {
		return v, true, nil
	}

	e.genMu.RLock()
	lf, idx := e.log, e.idx
	e.genMu.RUnlock()

	offset, ok := idx.Get(k)
	if !ok {
		return nil, false, nil
	}
	v, err := record.ReadValueAt(lf, offset)
	if err != nil {
		return nil, false, kverrors.New(kverrors.Malformed, "get", err)
	}
	e.cache.Put(k, v)
	return v, true, nil
}

// Remove deletes k, if bound, returning its previous value.
func (e *Engine) Remove(k int64) (prev []byte, hadPrev bool, err error) {
	if err := e.acquireWriter(); err != nil {
		return nil, false, err
	}
	defer e.writeMu.Unlock()
	if e.isClosed() {
		return nil, false, kverrors.New(kverrors.Closed, "remove", nil)
	}

	prev, hadPrev, err = e.previousValueLocked(k)
	if err != nil {
		return nil, false, err
	}
	if !hadPrev {
		return nil, false, nil
	}

	rec := record.EncodeRemove(k)
	if _, err := e.log.Append(rec); err != nil {
		return nil, false, kverrors.New(kverrors.Io, "remove", err)
	}
	if e.cfg.SyncOnWrite {
		if err := e.log.Sync(); err != nil {
			return nil, false, kverrors.New(kverrors.Io, "remove", err)
		}
	}
	e.idx.Remove(k)
	e.cache.Invalidate(k)

	e.maybeCompact()
	return prev, hadPrev, nil
}

// previousValueLocked resolves k's current value via the cache, then the
// index and log, without mutating either. The caller must hold writeMu.
func (e *Engine) previousValueLocked(k int64) ([]byte, bool, error) {
	if v, hit := e.cache.Get(k); hit {
		return v, true, nil
	}
	offset, ok := e.idx.Get(k)
	if !ok {
		return nil, false, nil
	}
	v, err := record.ReadValueAt(e.log, offset)
	if err != nil {
		return nil, false, kverrors.New(kverrors.Malformed, "set", err)
	}
	return v, true, nil
}

// Close flushes pending writes and closes the log. Close is idempotent.
func (e *Engine) Close() error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.isClosed() {
		return nil
	}
	atomic.StoreInt32((*int32)(&e.state), int32(stateClosed))
	return e.log.Close()
}

func (e *Engine) isClosed() bool {
	return atomic.LoadInt32((*int32)(&e.state)) == int32(stateClosed)
}

// acquireWriter takes writeMu. With FailBusy set, a writer that loses the
// race to a compaction already in progress fails fast instead of queuing;
// losing the race to an ordinary concurrent Set/Remove still just blocks,
// since Busy describes compaction contention, not writer contention.
func (e *Engine) acquireWriter() error {
	if !e.cfg.FailBusy {
		e.writeMu.Lock()
		return nil
	}
	if e.writeMu.TryLock() {
		return nil
	}
	if atomic.LoadInt32((*int32)(&e.state)) == int32(stateCompacting) {
		return kverrors.New(kverrors.Busy, "write", nil)
	}
	e.writeMu.Lock()
	return nil
}
