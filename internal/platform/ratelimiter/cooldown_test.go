package ratelimiter

import (
	"fmt"
	"testing"
	"time"
)

func TestAllowOncePerWindow(t *testing.T) {
	l := New(5*time.Second, time.Minute)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if !l.Allow("10.0.0.1", base) {
		t.Fatal("first call should pass")
	}
	if l.Allow("10.0.0.1", base.Add(2*time.Second)) {
		t.Fatal("second call inside the window should be rejected")
	}
	if !l.Allow("10.0.0.1", base.Add(6*time.Second)) {
		t.Fatal("call after the window should pass")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(5*time.Second, time.Minute)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if !l.Allow("a", base) || !l.Allow("b", base) {
		t.Fatal("distinct keys should not share a cooldown")
	}
}

func TestNilAndBlankKeyAlwaysAllow(t *testing.T) {
	var l *CooldownLimiter
	if !l.Allow("x", time.Now()) {
		t.Fatal("nil limiter should allow everything")
	}
	l = New(time.Second, time.Minute)
	if !l.Allow("", time.Now()) || !l.Allow("  ", time.Now()) {
		t.Fatal("blank keys should bypass the cooldown")
	}
}

func TestInvalidWindowReturnsNil(t *testing.T) {
	if New(0, time.Minute) != nil {
		t.Fatal("zero window should produce a nil limiter")
	}
}

func TestIdleEntriesAreEvicted(t *testing.T) {
	l := New(time.Second, time.Minute)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 600; i++ {
		l.Allow(fmt.Sprintf("addr-%d", i), base)
	}
	// The sweep runs every 512 hits; push one hit far past the idle TTL so
	// everything seen at base gets evicted on the next sweep boundary.
	later := base.Add(time.Hour)
	for i := 0; i < 600; i++ {
		l.Allow("survivor", later)
	}
	if keys := l.Keys(); keys > 100 {
		t.Fatalf("expected idle entries evicted, still tracking %d keys", keys)
	}
}
