// Package leveldb adapts a LevelDB instance, via levigo's cgo bindings, to
// the same Set/Get/Remove shape as engine.Engine, so the benchmark harness
// can compare the log-structured engine against an LSM-tree store on
// identical workloads.
package leveldb

import (
	"encoding/binary"
	"sync"

	"github.com/jmhodges/levigo"
)

// Database wraps a LevelDB instance opened at a directory path.
type Database struct {
	db *levigo.DB

	keyPool *sync.Pool
	wo      *levigo.WriteOptions
	ro      *levigo.ReadOptions
}

func newKeyPool() *sync.Pool {
	return &sync.Pool{New: func() interface{} {
		return make([]byte, 8)
	}}
}

func defaultOptions() *levigo.Options {
	opts := levigo.NewOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCompression(levigo.NoCompression)
	opts.SetCache(levigo.NewLRUCache(0))
	opts.SetWriteBufferSize(4 * 1024 * 1024)
	return opts
}

// Open opens (creating if necessary) a LevelDB instance at path.
func Open(path string) (*Database, error) {
	db, err := levigo.Open(path, defaultOptions())
	if err != nil {
		return nil, err
	}
	return &Database{
		db:      db,
		keyPool: newKeyPool(),
		wo:      levigo.NewWriteOptions(),
		ro:      levigo.NewReadOptions(),
	}, nil
}

// keyBytes encodes k the same way record.EncodeSet does, so a log dumped
// from the engine and a LevelDB instance populated from the same workload
// sort identically.
func (d *Database) keyBytes(k int64) []byte {
	b := d.keyPool.Get().([]byte)
	binary.BigEndian.PutUint64(b, uint64(k))
	return b
}

// Set stores value under key, returning the value it replaced, if any.
func (d *Database) Set(key int64, value []byte) ([]byte, bool, error) {
	kb := d.keyBytes(key)
	defer d.keyPool.Put(kb)

	prev, hadPrev, err := d.Get(key)
	if err != nil {
		return nil, false, err
	}
	if err := d.db.Put(d.wo, kb, value); err != nil {
		return nil, false, err
	}
	return prev, hadPrev, nil
}

// Get returns the value bound to key, if any.
func (d *Database) Get(key int64) ([]byte, bool, error) {
	kb := d.keyBytes(key)
	defer d.keyPool.Put(kb)

	data, err := d.db.Get(d.ro, kb)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

// Remove deletes key, returning the value it held, if any.
func (d *Database) Remove(key int64) ([]byte, bool, error) {
	kb := d.keyBytes(key)
	defer d.keyPool.Put(kb)

	prev, hadPrev, err := d.Get(key)
	if err != nil {
		return nil, false, err
	}
	if !hadPrev {
		return nil, false, nil
	}
	if err := d.db.Delete(d.wo, kb); err != nil {
		return nil, false, err
	}
	return prev, hadPrev, nil
}

// Compact runs LevelDB's own log and sstable compaction, for benchmark
// parity with the engine's explicit Compact.
func (d *Database) Compact() {
	d.db.CompactRange(levigo.Range{})
}

// Close shuts down the database.
func (d *Database) Close() error {
	d.wo.Close()
	d.ro.Close()
	d.db.Close()
	return nil
}
