// Package random provides the seeded, deterministic randomness used by the
// simulation and a crypto-backed seed for production runs.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"
)

// Source is a PCG generator guarded by a mutex so concurrent services can
// share it. It satisfies ports.Random.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Source whose sequence is fully determined by seed.
func New(seed int64) *Source {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	return &Source{rng: rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))}
}

func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Derive returns an independent Source for a named sub-stream, so that adding
// draws to one consumer does not shift another consumer's sequence.
func Derive(seed int64, stream string) *Source {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d/%s", seed, stream)))
	return New(int64(h.Sum64()))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}

// Fixed replays a scripted sequence of draws; used by tests that need an
// exact outcome. Float64 cycles through Floats, IntN through Ints modulo n.
type Fixed struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi     int
	ii     int
}

func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Floats) == 0 {
		return 0
	}
	v := f.Floats[f.fi%len(f.Floats)]
	f.fi++
	return v
}

func (f *Fixed) IntN(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= 0 || len(f.Ints) == 0 {
		return 0
	}
	v := f.Ints[f.ii%len(f.Ints)]
	f.ii++
	if v < 0 {
		v = -v
	}
	return v % n
}
