package random

import (
	"strings"
	"sync"
	"testing"
)

func TestStringUsesAlphabet(t *testing.T) {
	value, err := String(Alphanumeric, 64)
	if err != nil {
		t.Fatalf("string: %v", err)
	}
	if len(value) != 64 {
		t.Fatalf("expected 64 characters, got %d", len(value))
	}
	for _, r := range value {
		if !strings.ContainsRune(Alphanumeric, r) {
			t.Fatalf("unexpected character %q", r)
		}
	}
}

func TestStringRejectsEmptyInput(t *testing.T) {
	if _, err := String("", 4); err == nil {
		t.Fatal("expected error for empty alphabet")
	}
	if _, err := String(Digits, 0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestNewRand(t *testing.T) {
	rng, err := NewRand()
	if err != nil {
		t.Fatalf("new rand: %v", err)
	}
	if n := rng.IntN(10); n < 0 || n >= 10 {
		t.Fatalf("out of range value %d", n)
	}
}

func TestLockedConcurrentUse(t *testing.T) {
	rng, err := NewLocked()
	if err != nil {
		t.Fatalf("new locked: %v", err)
	}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if n := rng.IntN(6); n < 0 || n >= 6 {
					t.Errorf("out of range value %d", n)
					return
				}
			}
		}()
	}
	wg.Wait()
}
