package fs

import (
	"os"
	"sync"

	"github.com/spf13/afero"
)

type aferoFilesys struct {
	fs afero.Fs
	mu sync.Mutex
	st Stats
}

func (f *aferoFilesys) readOp(n int) {
	f.mu.Lock()
	f.st.ReadOps++
	f.st.ReadBytes += n
	f.mu.Unlock()
}

func (f *aferoFilesys) writeOp(n int) {
	f.mu.Lock()
	f.st.WriteOps++
	f.st.WriteBytes += n
	f.mu.Unlock()
}

type aferoFile struct {
	afero.File
	fs *aferoFilesys
}

func (f aferoFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.File.ReadAt(p, off)
	f.fs.readOp(n)
	return n, err
}

func (f aferoFile) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	f.fs.writeOp(n)
	return n, err
}

func (f aferoFile) Size() (int64, error) {
	info, err := f.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open opens fname for reading and writing, creating it if it does not
// exist. Writes are opened O_APPEND so that Write always lands at
// end-of-file regardless of the handle's seek position; a log reopened
// against an existing non-empty file must append past its prior contents,
// never overwrite them from offset 0.
func (fs *aferoFilesys) Open(fname string) (File, error) {
	f, err := fs.fs.OpenFile(fname, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return aferoFile{f, fs}, nil
}

func (fs *aferoFilesys) Remove(fname string) error {
	return fs.fs.Remove(fname)
}

func (fs *aferoFilesys) Rename(oldname, newname string) error {
	return fs.fs.Rename(oldname, newname)
}

func (fs *aferoFilesys) Stats() Stats {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.st
}

func fromAfero(afs afero.Fs) Filesys {
	return &aferoFilesys{fs: afs}
}

// MemFs creates an in-memory Filesys, for tests.
func MemFs() Filesys {
	return fromAfero(afero.NewMemMapFs())
}

// DirFs creates a Filesys backed by the operating system, rooted at
// basedir. It creates basedir if it does not already exist.
func DirFs(basedir string) (Filesys, error) {
	osFs := afero.NewOsFs()
	ok, err := afero.DirExists(osFs, basedir)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := osFs.MkdirAll(basedir, 0755); err != nil {
			return nil, err
		}
	}
	return fromAfero(afero.NewBasePathFs(osFs, basedir)), nil
}
