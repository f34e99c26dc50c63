package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "2026")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max holders = %d, want 1", maxInside)
	}
	if km.Len() != 0 {
		t.Errorf("Len() = %d after all unlocks, want 0", km.Len())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA, err := km.Lock(context.Background(), "2026")
	if err != nil {
		t.Fatalf("Lock(2026) error = %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, "1234")
	if err != nil {
		t.Fatalf("Lock(1234) blocked by another key: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "2026")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, "2026"); err == nil {
		t.Fatal("Lock() on a held key expected error after timeout")
	}

	unlock()
	unlock() // second call is a no-op

	if km.Len() != 0 {
		t.Errorf("Len() = %d, want 0", km.Len())
	}
}
