// Package logfile wraps a single append-only, randomly readable file: the
// engine's active log, or a compaction temp file before it replaces the
// live log.
package logfile

import (
	"sync"

	"kvdb/fs"
)

// LogFile is an append-only file. Appends are expected to be serialized by
// the caller (the engine's writer lock); reads may run concurrently with
// appends and with each other.
type LogFile struct {
	filesys fs.Filesys
	name    string
	file    fs.File

	mu     sync.Mutex
	length int64
}

// Open opens the file named name within filesys, creating it if it does not
// exist, and returns a LogFile positioned at its current length.
func Open(filesys fs.Filesys, name string) (*LogFile, error) {
	f, err := filesys.Open(name)
	if err != nil {
		return nil, err
	}
	size, err := f.Size()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &LogFile{filesys: filesys, name: name, file: f, length: size}, nil
}

// Length returns the file's current byte length.
func (l *LogFile) Length() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.length
}

// Append extends the file with b and returns the offset at which its first
// byte was written.
func (l *LogFile) Append(b []byte) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	offset := l.length
	n, err := l.file.Write(b)
	l.length += int64(n)
	if err != nil {
		return offset, err
	}
	return offset, nil
}

// ReadAt implements io.ReaderAt, so a LogFile can be decoded directly by the
// record codec. Reads at offsets below the length returned by the most
// recent successful Append are stable.
func (l *LogFile) ReadAt(p []byte, off int64) (int, error) {
	return l.file.ReadAt(p, off)
}

// Sync durably flushes outstanding writes.
func (l *LogFile) Sync() error {
	return l.file.Sync()
}

// Truncate shortens the file to size, used to drop a torn trailing record
// found during replay. It is only safe to call before any concurrent
// readers could observe offsets past size.
func (l *LogFile) Truncate(size int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Truncate(size); err != nil {
		return err
	}
	l.length = size
	return nil
}

// Close closes the underlying file.
func (l *LogFile) Close() error {
	return l.file.Close()
}

// Remove deletes the file named name from filesys. Used to drop an aborted
// compaction temp file.
func Remove(filesys fs.Filesys, name string) error {
	return filesys.Remove(name)
}

// ReplaceName atomically replaces liveName's contents with l's, per the
// filesystem's rename semantics, and returns a LogFile representing the
// post-rename file (the same handle l already holds, since renaming a file
// does not invalidate descriptors open on it).
func (l *LogFile) ReplaceName(liveName string) (*LogFile, error) {
	if err := l.filesys.Rename(l.name, liveName); err != nil {
		return nil, err
	}
	l.name = liveName
	return l, nil
}
