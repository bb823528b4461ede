package main

import (
	"fmt"
	"math/rand"
	"time"
)

type generator struct {
	*rand.Rand
	key int64
}

func newGenerator() *generator {
	r := rand.New(rand.NewSource(0))
	return &generator{Rand: r}
}

func (g generator) ReSeed(seed int64) {
	g.Rand.Seed(seed)
}

func (g *generator) NextKey() int64 {
	k := g.key
	g.key++
	return k
}

func (g generator) RandomKey(max int) int64 {
	return g.Rand.Int63n(int64(max))
}

func (g generator) Value() []byte {
	b := make([]byte, 100)
	g.Read(b)
	return b
}

type stats struct {
	Ops   int
	Bytes int
	Start time.Time
	End   *time.Time
}

func newStats() *stats {
	return &stats{Start: time.Now()}
}

// finishedSingleOp records finishing an operation that processed some
// number of bytes.
func (s *stats) finishedSingleOp(bytes int) {
	s.Ops++
	s.Bytes += bytes
}

func (s *stats) done() {
	if s.End != nil {
		panic("stats object marked done multiple times")
	}
	t := time.Now()
	s.End = &t
}

func (s stats) seconds() float64 {
	return s.End.Sub(s.Start).Seconds()
}

func (s stats) microsPerOp() float64 {
	return (s.seconds() * 1e6) / float64(s.Ops)
}

func (s stats) megabytesPerSec() float64 {
	mb := float64(s.Bytes) / (1024 * 1024)
	return mb / s.seconds()
}

func (s stats) format() string {
	if s.Bytes == 0 {
		return fmt.Sprintf("%7.3f micros/op", s.microsPerOp())
	}
	return fmt.Sprintf("%7.3f micros/op; %6.1f MB/s", s.microsPerOp(), s.megabytesPerSec())
}

// benchState tracks information for a single named benchmark.
type benchState struct {
	name string
	*generator
	*stats
}

func newBench(name string) benchState {
	return benchState{name: name, generator: newGenerator(), stats: newStats()}
}

func (s benchState) report() {
	s.stats.done()
	fmt.Printf("%-20s : %s\n", s.name, s.stats.format())
}
