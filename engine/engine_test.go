package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"kvdb/fs"
)

type EngineSuite struct {
	suite.Suite
	e *Engine
}

func (s *EngineSuite) SetupTest() {
	e, err := OpenMem(Options{})
	s.Require().NoError(err)
	s.e = e
}

func (s *EngineSuite) TearDownTest() {
	s.Require().NoError(s.e.Close())
}

func (s *EngineSuite) TestGetMissingKey() {
	v, ok, err := s.e.Get(1)
	s.NoError(err)
	s.False(ok)
	s.Nil(v)
}

func (s *EngineSuite) TestSetThenGet() {
	prev, had, err := s.e.Set(1, []byte("a"))
	s.NoError(err)
	s.False(had)
	s.Nil(prev)

	v, ok, err := s.e.Get(1)
	s.NoError(err)
	s.True(ok)
	s.Equal([]byte("a"), v)
}

func (s *EngineSuite) TestSetOverwriteReturnsPrevious() {
	_, _, err := s.e.Set(1, []byte("a"))
	s.Require().NoError(err)

	prev, had, err := s.e.Set(1, []byte("b"))
	s.NoError(err)
	s.True(had)
	s.Equal([]byte("a"), prev)

	v, _, _ := s.e.Get(1)
	s.Equal([]byte("b"), v)
}

func (s *EngineSuite) TestRemoveMissingKeyIsNoop() {
	prev, had, err := s.e.Remove(1)
	s.NoError(err)
	s.False(had)
	s.Nil(prev)
}

func (s *EngineSuite) TestRemoveExistingKey() {
	_, _, err := s.e.Set(1, []byte("a"))
	s.Require().NoError(err)

	prev, had, err := s.e.Remove(1)
	s.NoError(err)
	s.True(had)
	s.Equal([]byte("a"), prev)

	_, ok, _ := s.e.Get(1)
	s.False(ok)
}

func (s *EngineSuite) TestSetAfterRemoveResurrectsKey() {
	_, _, _ = s.e.Set(1, []byte("a"))
	_, _, _ = s.e.Remove(1)
	_, _, err := s.e.Set(1, []byte("c"))
	s.Require().NoError(err)

	v, ok, _ := s.e.Get(1)
	s.True(ok)
	s.Equal([]byte("c"), v)
}

func (s *EngineSuite) TestOperationsAfterCloseFail() {
	s.Require().NoError(s.e.Close())
	_, _, err := s.e.Set(1, []byte("a"))
	s.Error(err)
	_, _, err = s.e.Get(1)
	s.Error(err)
	_, _, err = s.e.Remove(1)
	s.Error(err)
}

func (s *EngineSuite) TestCloseIsIdempotent() {
	s.Require().NoError(s.e.Close())
	s.Require().NoError(s.e.Close())
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func TestReplayRebuildsIndexAcrossReopen(t *testing.T) {
	filesys := fs.MemFs()
	e, err := open(filesys, "data", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Set(1, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Set(2, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Remove(1); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	e2, err := open(filesys, "data", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()

	if _, ok, _ := e2.Get(1); ok {
		t.Fatal("expected key 1 to remain removed after reopen")
	}
	v, ok, err := e2.Get(2)
	if err != nil || !ok || string(v) != "b" {
		t.Fatalf("got %q, %v, %v", v, ok, err)
	}
}

func TestTornTailRecoveryOnReopen(t *testing.T) {
	filesys := fs.MemFs()
	e, err := open(filesys, "data", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Set(1, []byte("first")); err != nil {
		t.Fatal(err)
	}
	fullLength := e.log.Length()
	if _, _, err := e.Set(2, []byte("second")); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := filesys.Open("data")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(fullLength + 3); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	e2, err := open(filesys, "data", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()

	v, ok, err := e2.Get(1)
	if err != nil || !ok || string(v) != "first" {
		t.Fatalf("expected key 1 to survive torn-tail recovery, got %q, %v, %v", v, ok, err)
	}
	if _, ok, _ := e2.Get(2); ok {
		t.Fatal("expected the torn second record to be dropped")
	}
	if e2.log.Length() != fullLength {
		t.Fatalf("expected log truncated back to %d, got %d", fullLength, e2.log.Length())
	}
}

func TestCompactPreservesLiveValues(t *testing.T) {
	e, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	for i := int64(0); i < 50; i++ {
		if _, _, err := e.Set(i, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := int64(0); i < 25; i++ {
		if _, _, err := e.Remove(i); err != nil {
			t.Fatal(err)
		}
	}
	lenBefore := e.log.Length()

	if err := e.Compact(); err != nil {
		t.Fatal(err)
	}

	if e.log.Length() >= lenBefore {
		t.Fatalf("expected compaction to shrink the log: before=%d after=%d", lenBefore, e.log.Length())
	}
	for i := int64(0); i < 25; i++ {
		if _, ok, _ := e.Get(i); ok {
			t.Fatalf("key %d should have stayed removed after compaction", i)
		}
	}
	for i := int64(25); i < 50; i++ {
		v, ok, err := e.Get(i)
		if err != nil || !ok || v[0] != byte(i) {
			t.Fatalf("key %d: got %v, %v, %v", i, v, ok, err)
		}
	}
}

func TestWriteAfterReopenDoesNotCorruptPriorRecords(t *testing.T) {
	filesys := fs.MemFs()
	e, err := open(filesys, "data", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Set(1, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Set(2, []byte("second")); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	e2, err := open(filesys, "data", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()

	if _, _, err := e2.Set(3, []byte("third")); err != nil {
		t.Fatal(err)
	}

	for k, want := range map[int64]string{1: "first", 2: "second", 3: "third"} {
		v, ok, err := e2.Get(k)
		if err != nil || !ok || string(v) != want {
			t.Fatalf("key %d: got %q, %v, %v, want %q", k, v, ok, err, want)
		}
	}
}

func TestConcurrentGetDuringCompact(t *testing.T) {
	e, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	const numKeys = 200
	for i := int64(0); i < numKeys; i++ {
		if _, _, err := e.Set(i, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				k := int64(0)
				v, ok, err := e.Get(k)
				if err != nil {
					t.Errorf("concurrent Get: %v", err)
					return
				}
				if ok && v[0] != byte(k) {
					t.Errorf("concurrent Get: key %d returned %v, want %d", k, v, byte(k))
					return
				}
			}
		}()
	}

	for i := 0; i < 10; i++ {
		if err := e.Compact(); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()

	for i := int64(0); i < numKeys; i++ {
		v, ok, err := e.Get(i)
		if err != nil || !ok || v[0] != byte(i) {
			t.Fatalf("key %d: got %v, %v, %v", i, v, ok, err)
		}
	}
}

func TestConcurrentSetAndGet(t *testing.T) {
	e, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	const numWriters = 4
	const opsPerWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			k := int64(w)
			for i := 0; i < opsPerWriter; i++ {
				if _, _, err := e.Set(k, []byte{byte(i)}); err != nil {
					t.Errorf("concurrent Set: %v", err)
					return
				}
				if _, _, err := e.Get(k); err != nil {
					t.Errorf("concurrent Get: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < numWriters; w++ {
		v, ok, err := e.Get(int64(w))
		if err != nil || !ok || v[0] != byte(opsPerWriter-1) {
			t.Fatalf("key %d: got %v, %v, %v, want last write %d", w, v, ok, err, opsPerWriter-1)
		}
	}
}

func TestCompactTriggersAutomaticallyPastThreshold(t *testing.T) {
	e, err := OpenMem(Options{CompactionThresholdBytes: 128})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	for i := int64(0); i < 20; i++ {
		if _, _, err := e.Set(0, make([]byte, 32)); err != nil {
			t.Fatal(err)
		}
	}
	if e.log.Length() >= 128*10 {
		t.Fatalf("expected repeated compaction to keep the log small, got %d", e.log.Length())
	}
}
