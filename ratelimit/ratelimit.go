package ratelimit

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// SlidingWindow limits requests per key to maxRequests within window.
type SlidingWindow struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time
	stopCleanup chan struct{}
}

func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	sw := &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}
	go sw.cleanupLoop()
	return sw
}

// Allow records a request for key and reports whether it is under the limit.
func (sw *SlidingWindow) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-sw.window)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	recent := pruneBefore(sw.requests[key], cutoff)
	if len(recent) >= sw.maxRequests {
		sw.requests[key] = recent
		return false
	}
	sw.requests[key] = append(recent, now)
	return true
}

// Pending returns how many requests for key still count against the limit.
func (sw *SlidingWindow) Pending(key string) int {
	cutoff := time.Now().Add(-sw.window)

	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(pruneBefore(sw.requests[key], cutoff))
}

// Reset forgets all requests recorded for key.
func (sw *SlidingWindow) Reset(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.requests, key)
}

func (sw *SlidingWindow) Stop() {
	close(sw.stopCleanup)
}

func (sw *SlidingWindow) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.cleanup()
		case <-sw.stopCleanup:
			return
		}
	}
}

// cleanup drops keys whose entries all fell out of the window so idle
// clients do not accumulate in the map.
func (sw *SlidingWindow) cleanup() {
	cutoff := time.Now().Add(-sw.window)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	for key, entries := range sw.requests {
		recent := pruneBefore(entries, cutoff)
		if len(recent) == 0 {
			delete(sw.requests, key)
		} else {
			sw.requests[key] = recent
		}
	}
}

func pruneBefore(entries []time.Time, cutoff time.Time) []time.Time {
	recent := entries[:0:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	return recent
}
