package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/domain"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex(time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := m.Lock(context.Background(), "user:1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if len(m.slots) != 0 {
		t.Fatalf("expected slots to be cleaned up, got %d", len(m.slots))
	}
}

func TestKeyedMutexDifferentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex(50 * time.Millisecond)

	_, releaseA, err := m.Lock(context.Background(), "user:a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer releaseA()

	_, releaseB, err := m.Lock(context.Background(), "user:b")
	if err != nil {
		t.Fatalf("Lock b while a is held: %v", err)
	}
	releaseB()
}

func TestKeyedMutexReentrantThroughContext(t *testing.T) {
	m := NewKeyedMutex(20 * time.Millisecond)

	ctx, release, err := m.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	nestedCtx, nestedRelease, err := m.Lock(ctx, "user:1")
	if err != nil {
		t.Fatalf("nested Lock should not block: %v", err)
	}
	nestedRelease()
	if nestedCtx != ctx {
		t.Fatal("nested Lock should return the holding context")
	}

	// The nested release must not have freed the outer hold.
	if _, _, err := m.Lock(context.Background(), "user:1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while outer hold is active, got %v", err)
	}
}

func TestKeyedMutexWaitTimeout(t *testing.T) {
	m := NewKeyedMutex(10 * time.Millisecond)

	_, release, err := m.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	_, _, err = m.Lock(context.Background(), "user:1")
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict kind, got %v", err)
	}
}

func TestKeyedMutexContextCancel(t *testing.T) {
	m := NewKeyedMutex(time.Second)

	_, release, err := m.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := m.Lock(ctx, "user:1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestKeyedMutexReleaseIsIdempotent(t *testing.T) {
	m := NewKeyedMutex(20 * time.Millisecond)

	_, release, err := m.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	release()
	release()

	_, again, err := m.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}
