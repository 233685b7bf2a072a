package guard

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistry_TryAcquireOnce(t *testing.T) {
	r := NewRegistry()

	if !r.TryAcquireJump(1) {
		t.Fatal("first acquire should succeed")
	}
	if r.TryAcquireJump(1) {
		t.Fatal("second acquire should fail while held")
	}
	r.ReleaseJump(1)
	if !r.TryAcquireJump(1) {
		t.Fatal("acquire after release should succeed")
	}
}

func TestRegistry_SetsAreDisjoint(t *testing.T) {
	r := NewRegistry()

	if !r.TryAcquireJump(1) || !r.TryAcquireCredits(1) || !r.TryAcquireAnalysis(1) {
		t.Fatal("the three guard sets must not interfere for the same key")
	}
}

func TestRegistry_ClearSession(t *testing.T) {
	r := NewRegistry()

	r.TryAcquireJump(1)
	r.TryAcquireCredits(1)
	r.TryAcquireAnalysis(1)

	r.ClearSession(1)

	if !r.TryAcquireJump(1) {
		t.Error("jump guard should clear with the session")
	}
	if !r.TryAcquireCredits(1) {
		t.Error("credits guard should clear with the session")
	}
	if !r.AnalysisInFlight(1) {
		t.Error("analysis guard is item-scoped and must survive ClearSession")
	}
}

func TestRegistry_ConcurrentAcquireExactlyOne(t *testing.T) {
	r := NewRegistry()

	const goroutines = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if r.TryAcquireAnalysis(42) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("%d goroutines won the guard, want exactly 1", got)
	}
}
