package gateway

import (
	"testing"
	"time"
)

func TestRateLimiter_AdmitsUpToCapThenDenies(t *testing.T) {
	current := time.Unix(0, 0)
	clock := func() time.Time { return current }
	rl := NewRateLimiter(clock)
	rl.caps = map[ConnectionClass]classCap{
		ClassLocal: {window: time.Minute, cap: 3},
	}

	for i := 0; i < 3; i++ {
		if !rl.Admit(ClassLocal, "client-a") {
			t.Fatalf("admit %d: expected true within cap", i)
		}
	}
	if rl.Admit(ClassLocal, "client-a") {
		t.Fatal("expected 4th admit within window to be denied")
	}

	// A distinct client-id gets its own bucket.
	if !rl.Admit(ClassLocal, "client-b") {
		t.Fatal("expected distinct client-id to have its own bucket")
	}
}

func TestRateLimiter_WindowExpiryReopensCapacity(t *testing.T) {
	current := time.Unix(0, 0)
	clock := func() time.Time { return current }
	rl := NewRateLimiter(clock)
	rl.caps = map[ConnectionClass]classCap{
		ClassLocal: {window: time.Minute, cap: 1},
	}

	if !rl.Admit(ClassLocal, "client-a") {
		t.Fatal("expected first admit to succeed")
	}
	if rl.Admit(ClassLocal, "client-a") {
		t.Fatal("expected second admit within window to be denied")
	}

	current = current.Add(time.Minute + time.Second)
	if !rl.Admit(ClassLocal, "client-a") {
		t.Fatal("expected admit to succeed once the window has rolled over")
	}
}

func TestRateLimiter_UnknownClassUsesFallbackCap(t *testing.T) {
	rl := NewRateLimiter(nil)
	if !rl.Admit(ConnectionClass("unknown"), "client-a") {
		t.Fatal("expected unknown class to fall back to a permissive default cap")
	}
}

func TestRateLimiter_EvictsWhenOverTrackedKeyCap(t *testing.T) {
	rl := NewRateLimiter(nil)
	rl.caps = map[ConnectionClass]classCap{ClassLocal: {window: time.Minute, cap: 10}}

	for i := 0; i < maxTrackedKeys+10; i++ {
		rl.Admit(ClassLocal, string(rune(i)))
	}

	rl.mu.Lock()
	count := len(rl.hits)
	rl.mu.Unlock()

	if count > maxTrackedKeys {
		t.Errorf("tracked key count = %d, want <= %d", count, maxTrackedKeys)
	}
}
