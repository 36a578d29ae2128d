package verification

import (
	"sync"
	"testing"
	"time"
)

func newClockedStore(start time.Time) (*MemoryStore, *time.Time) {
	now := start
	s := NewMemoryStore()
	s.nowF = func() time.Time { return now }
	return s, &now
}

func TestMemoryStorePutGet(t *testing.T) {
	s, _ := newClockedStore(time.Unix(1000, 0))

	s.Put("k", "v", time.Minute)
	got, found := s.Get("k")
	if !found || got != "v" {
		t.Fatalf("Get = %q, %v; want v, true", got, found)
	}

	if _, found := s.Get("missing"); found {
		t.Fatal("expected miss for absent key")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s, now := newClockedStore(time.Unix(1000, 0))

	s.Put("k", "v", 10*time.Second)

	*now = now.Add(9 * time.Second)
	if _, found := s.Get("k"); !found {
		t.Fatal("entry expired before its TTL")
	}

	*now = now.Add(time.Second)
	if _, found := s.Get("k"); found {
		t.Fatal("entry still live past its TTL")
	}
	if _, found := s.GetDel("k"); found {
		t.Fatal("GetDel returned an expired entry")
	}
}

func TestMemoryStorePutReplaces(t *testing.T) {
	s, now := newClockedStore(time.Unix(1000, 0))

	s.Put("k", "old", time.Second)
	s.Put("k", "new", time.Minute)

	*now = now.Add(30 * time.Second)
	got, found := s.Get("k")
	if !found || got != "new" {
		t.Fatalf("Get = %q, %v; want new value with refreshed TTL", got, found)
	}
}

func TestMemoryStoreGetDelRemoves(t *testing.T) {
	s, _ := newClockedStore(time.Unix(1000, 0))

	s.Put("k", "v", time.Minute)
	got, found := s.GetDel("k")
	if !found || got != "v" {
		t.Fatalf("GetDel = %q, %v; want v, true", got, found)
	}
	if _, found := s.Get("k"); found {
		t.Fatal("entry survived GetDel")
	}
}

func TestMemoryStoreGetDelExactlyOnce(t *testing.T) {
	s := NewMemoryStore()
	s.Put("k", "v", time.Minute)

	const workers = 32
	var wg sync.WaitGroup
	hits := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, found := s.GetDel("k"); found {
				hits <- v
			}
		}()
	}
	wg.Wait()
	close(hits)

	var n int
	for v := range hits {
		n++
		if v != "v" {
			t.Fatalf("winner observed %q, want v", v)
		}
	}
	if n != 1 {
		t.Fatalf("%d goroutines observed the value, want exactly 1", n)
	}
}
