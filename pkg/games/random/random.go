// Package random provides the random source injected into every outcome
// generator. Production code uses a time-seeded source; tests supply a
// scripted sequence so outcomes are reproducible.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source produces the random draws for outcome generation.
type Source interface {
	// Intn returns a uniform value in [0, n). Panics if n <= 0.
	Intn(n int) int
}

type seededSource struct {
	r *rand.Rand
}

// NewSource returns a Source seeded from the current time.
func NewSource() Source {
	return &seededSource{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewConcurrentSource returns a time-seeded Source safe for concurrent use.
// The engine shares one across all sessions; math/rand sources are not
// goroutine-safe on their own.
func NewConcurrentSource() Source {
	return &lockedSource{src: NewSource()}
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Intn(n)
}

// NewSeededSource returns a Source with a fixed seed.
func NewSeededSource(seed int64) Source {
	return &seededSource{r: rand.New(rand.NewSource(seed))}
}

func (s *seededSource) Intn(n int) int {
	return s.r.Intn(n)
}

// Sequence is a scripted Source for tests. It replays the configured values
// in order, each taken modulo the requested bound, and wraps around when
// exhausted.
type Sequence struct {
	values []int
	next   int
}

// NewSequence creates a scripted source from the given draws.
func NewSequence(values ...int) *Sequence {
	if len(values) == 0 {
		values = []int{0}
	}
	return &Sequence{values: values}
}

func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		panic("random: Intn bound must be positive")
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}
