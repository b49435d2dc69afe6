package ratelimit

import (
	"testing"
	"time"
)

func TestAllowUnderLimit(t *testing.T) {
	sw := NewSlidingWindow(3, time.Minute)
	defer sw.Stop()

	for i := 0; i < 3; i++ {
		if !sw.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if sw.Allow("10.0.0.1") {
		t.Fatal("fourth request should be rejected")
	}
	if sw.Pending("10.0.0.1") != 3 {
		t.Fatalf("expected 3 pending, got %d", sw.Pending("10.0.0.1"))
	}
}

func TestKeysAreIndependent(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute)
	defer sw.Stop()

	if !sw.Allow("10.0.0.1") {
		t.Fatal("first key should be allowed")
	}
	if !sw.Allow("10.0.0.2") {
		t.Fatal("second key should have its own window")
	}
	if sw.Allow("10.0.0.1") {
		t.Fatal("first key should be at its limit")
	}
}

func TestWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(1, 20*time.Millisecond)
	defer sw.Stop()

	if !sw.Allow("client") {
		t.Fatal("first request should be allowed")
	}
	if sw.Allow("client") {
		t.Fatal("second request inside the window should be rejected")
	}
	time.Sleep(30 * time.Millisecond)
	if !sw.Allow("client") {
		t.Fatal("request after the window expired should be allowed")
	}
}

func TestReset(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute)
	defer sw.Stop()

	sw.Allow("client")
	sw.Reset("client")
	if !sw.Allow("client") {
		t.Fatal("request after reset should be allowed")
	}
}
