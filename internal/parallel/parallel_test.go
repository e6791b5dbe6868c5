package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor_VisitsEveryIndex(t *testing.T) {
	cfg := DefaultConfig()

	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	for i, count := range seen {
		if count != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, count)
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, Config{Enabled: false})

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestFor_SmallJobStaysSequential(t *testing.T) {
	cfg := DefaultConfig()
	n := cfg.MinChunkSize - 1

	var counter int64
	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("counter = %d, want %d", counter, n)
	}
}

func TestFor_ZeroItems(t *testing.T) {
	called := false
	For(0, func(_ int) { called = true }, DefaultConfig())
	if called {
		t.Error("f must not run for n = 0")
	}
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		seq := cfg
		seq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, seq)
		}
	})
}
