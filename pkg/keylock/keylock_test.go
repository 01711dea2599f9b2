package keylock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/archivist/pkg/keylock"
)

func TestMemorySerializesSameKey(t *testing.T) {
	l := keylock.NewMemory()

	var active, peak atomic.Int32
	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			unlock, err := l.Lock(context.Background(), "doc-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer unlock()

			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
	}
	wg.Wait()

	if got := peak.Load(); got != 1 {
		t.Errorf("peak concurrent holders = %d, want 1", got)
	}
	if got := l.Len(); got != 0 {
		t.Errorf("tracked keys after release = %d, want 0", got)
	}
}

func TestMemoryIndependentKeys(t *testing.T) {
	l := keylock.NewMemory()

	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock b while a held: %v", err)
	}
	unlockB()
}

func TestMemoryLockTimeout(t *testing.T) {
	l := keylock.NewMemory()

	unlock, err := l.Lock(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(ctx, "doc"); !errors.Is(err, keylock.ErrLockTimeout) {
		t.Errorf("err = %v, want ErrLockTimeout", err)
	}

	unlock()
	unlock()

	if got := l.Len(); got != 0 {
		t.Errorf("tracked keys = %d, want 0", got)
	}
}
