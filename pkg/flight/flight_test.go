package flight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetComputesOnceAndCaches(t *testing.T) {
	var calls atomic.Int64
	cache := NewCache(func(k string) (string, error) {
		calls.Add(1)
		return "v:" + k, nil
	})

	for range 3 {
		v, err := cache.Get("a")
		if err != nil || v != "v:a" {
			t.Fatalf("get = %q, %v", v, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("work ran %d times, want 1", calls.Load())
	}

	if _, err := cache.Get("b"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("distinct keys should each compute, got %d calls", calls.Load())
	}
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int64
	fail := errors.New("nope")
	cache := NewCache(func(k string) (int, error) {
		calls.Add(1)
		return 0, fail
	})

	for range 2 {
		if _, err := cache.Get("k"); !errors.Is(err, fail) {
			t.Fatalf("err = %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("failed results should not be cached, got %d calls", calls.Load())
	}
}

func TestConcurrentGetsCoalesce(t *testing.T) {
	var calls atomic.Int64
	gate := make(chan struct{})
	cache := NewCache(func(k string) (string, error) {
		calls.Add(1)
		<-gate
		return k, nil
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := cache.Get("k"); err != nil || v != "k" {
				t.Errorf("get = %q, %v", v, err)
			}
		}()
	}
	close(gate)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("work ran %d times for coalesced gets, want 1", calls.Load())
	}
}

func TestForceRecomputes(t *testing.T) {
	var calls atomic.Int64
	cache := NewCache(func(k string) (int64, error) {
		return calls.Add(1), nil
	})

	first, _ := cache.Get("k")
	second, _ := cache.Force("k")
	if first == second {
		t.Error("force should recompute")
	}
	third, _ := cache.Get("k")
	if third != second {
		t.Error("get after force should serve the refreshed value")
	}
}

func TestExpiry(t *testing.T) {
	var calls atomic.Int64
	cache := NewCache(func(k string) (int64, error) {
		return calls.Add(1), nil
	})
	cache.Expiry(10 * time.Millisecond)

	cache.Get("k")
	time.Sleep(20 * time.Millisecond)
	cache.Get("k")

	if calls.Load() != 2 {
		t.Errorf("expired entry should recompute, got %d calls", calls.Load())
	}
}
