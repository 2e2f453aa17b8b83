package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id2.Compare(id1) <= 0 {
		t.Error("Monotonic IDs should sort after earlier IDs")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{SessionPrefix, CyclePrefix, RequestPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Fatalf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
		if !IsValid(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestTypedIDs(t *testing.T) {
	if !strings.HasPrefix(NewSessionID().String(), "sess_") {
		t.Error("session IDs should carry the sess prefix")
	}
	if !strings.HasPrefix(NewCycleID().String(), "cyc_") {
		t.Error("cycle IDs should carry the cyc prefix")
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	raw := NewGenerator().GenerateString()

	ts, err := Timestamp(raw)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should be after %v", ts, before)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers = 8
	const perWorker = 100

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.GenerateString()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique IDs, got %d", workers*perWorker, len(seen))
	}
}
