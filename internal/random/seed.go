// Package random provides crypto-backed randomness helpers.
//
// Token codes come from crypto/rand directly. Printed card details
// (department, blood group, student number) use a math/rand/v2 generator
// seeded from crypto/rand so tests can substitute a deterministic one.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"math/rand/v2"
	"sync"
)

// Alphanumeric is the upper-case alphabet used for token codes.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Digits is the alphabet used for numeric identifiers.
const Digits = "0123456789"

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewRand returns a PCG generator seeded from crypto/rand.
func NewRand() (*rand.Rand, error) {
	hi, err := NewSeed()
	if err != nil {
		return nil, err
	}
	lo, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(hi, lo)), nil
}

// Locked is a seeded generator safe for concurrent use.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked returns a crypto-seeded generator guarded by a mutex.
func NewLocked() (*Locked, error) {
	rng, err := NewRand()
	if err != nil {
		return nil, err
	}
	return &Locked{rng: rng}, nil
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// String returns n characters drawn uniformly from alphabet using crypto/rand.
func String(alphabet string, n int) (string, error) {
	if alphabet == "" || n <= 0 {
		return "", fmt.Errorf("random string: alphabet and length are required")
	}
	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := crand.Int(crand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("random string: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
