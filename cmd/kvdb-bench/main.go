// Command kvdb-bench drives fill/read workloads against either the
// log-structured engine or a LevelDB instance, for throughput comparison.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"kvdb/engine"
	"kvdb/fs"
	"kvdb/leveldb"
)

const dbPath = "benchmark.db"

var (
	benchmarks     = flag.String("benchmarks", "fillseq,readseq,fillrandom,readrandom", "comma-separated list of benchmarks to run")
	dbType         = flag.String("db", "kvdb", "database to use (kvdb|leveldb)")
	fsType         = flag.String("fs", "dir", "filesystem to use for kvdb (dir|mem)")
	numEntries     = flag.Int("entries", 1000000, "number of entries to put in database")
	numReads       = flag.Int("reads", -1, "number of reads to perform (-1 to copy entries)")
	finalCompact   = flag.Bool("final-compact", false, "force a compaction at end of benchmark")
	deleteDatabase = flag.Bool("delete-db", false, "delete database directory on completion")
	printStats     = flag.Bool("stats", false, "print out filesystem stats (kvdb only)")
)

// store is the common shape both candidate databases are adapted to.
type store interface {
	Set(key int64, value []byte) ([]byte, bool, error)
	Get(key int64) ([]byte, bool, error)
	Remove(key int64) ([]byte, bool, error)
	Compact() error
	Close() error
}

type engineStore struct{ *engine.Engine }

func (s engineStore) Compact() error { return s.Engine.Compact() }

type leveldbStore struct{ *leveldb.Database }

func (s leveldbStore) Compact() error { s.Database.Compact(); return nil }

func openStore() (store, fs.Filesys, error) {
	switch *dbType {
	case "kvdb":
		var filesys fs.Filesys
		var e *engine.Engine
		var err error
		if *fsType == "mem" {
			filesys = fs.MemFs()
			e, err = engine.OpenMem(engine.Options{})
		} else {
			e, err = engine.Open(dbPath, engine.Options{})
		}
		if err != nil {
			return nil, nil, err
		}
		return engineStore{e}, filesys, nil
	case "leveldb":
		os.RemoveAll(dbPath)
		d, err := leveldb.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return leveldbStore{d}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown database type %q", *dbType)
}

func runBenchmarks(s store) {
	for _, name := range strings.Split(*benchmarks, ",") {
		b := newBench(name)
		switch name {
		case "fillseq":
			for i := 0; i < *numEntries; i++ {
				k, v := b.NextKey(), b.Value()
				if _, _, err := s.Set(k, v); err != nil {
					log.Fatal(err)
				}
				b.finishedSingleOp(8 + len(v))
			}
			if *finalCompact {
				if err := s.Compact(); err != nil {
					log.Fatal(err)
				}
			}
		case "fillrandom":
			for i := 0; i < *numEntries; i++ {
				k, v := b.RandomKey(*numEntries), b.Value()
				if _, _, err := s.Set(k, v); err != nil {
					log.Fatal(err)
				}
				b.finishedSingleOp(8 + len(v))
			}
			if *finalCompact {
				if err := s.Compact(); err != nil {
					log.Fatal(err)
				}
			}
		case "readseq":
			for i := 0; i < *numReads; i++ {
				v, ok, err := s.Get(b.NextKey())
				if err != nil {
					log.Fatal(err)
				}
				if ok {
					b.finishedSingleOp(8 + len(v))
				}
			}
		case "readrandom":
			b.ReSeed(1)
			for i := 0; i < *numReads; i++ {
				v, ok, err := s.Get(b.RandomKey(*numEntries))
				if err != nil {
					log.Fatal(err)
				}
				if ok {
					b.finishedSingleOp(8 + len(v))
				}
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown benchmark %s\n", name)
			os.Exit(1)
		}
		b.report()
	}
}

func main() {
	flag.Parse()
	if *numReads == -1 {
		*numReads = *numEntries
	}

	s, filesys, err := openStore()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%20s %s\n", "database:", *dbType)
	fmt.Printf("%20s %s\n", "entries:", fmt.Sprint(*numEntries))
	fmt.Println(strings.Repeat("-", 30))

	runBenchmarks(s)

	if *printStats && filesys != nil {
		st := filesys.Stats()
		fmt.Printf("[meta] fs-reads  : %d ops, %d bytes\n", st.ReadOps, st.ReadBytes)
		fmt.Printf("[meta] fs-writes : %d ops, %d bytes\n", st.WriteOps, st.WriteBytes)
	}

	if err := s.Close(); err != nil {
		log.Fatal(err)
	}
	if *deleteDatabase {
		os.RemoveAll(dbPath)
	}
}
