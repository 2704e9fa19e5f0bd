package server

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMultiLimiterAllow(t *testing.T) {
	// 2 events per second with burst 2
	ml := newMultiLimiter(rate.Limit(2), 2, time.Minute)
	key := "test"
	if !ml.allow(key) {
		t.Fatal("first allow should pass")
	}
	if !ml.allow(key) {
		t.Fatal("second allow should pass")
	}
	// burst exhausted
	if ml.allow(key) {
		t.Fatal("third allow should be rate limited")
	}
}

func TestMultiLimiterIsolatesKeys(t *testing.T) {
	ml := newMultiLimiter(rate.Limit(1), 1, time.Minute)
	if !ml.allow("alice") {
		t.Fatal("alice should pass")
	}
	if ml.allow("alice") {
		t.Fatal("alice should be limited")
	}
	if !ml.allow("bob") {
		t.Fatal("bob must not inherit alice's bucket")
	}
}

func TestMultiLimiterEvictsIdleBuckets(t *testing.T) {
	ml := newMultiLimiter(rate.Limit(1), 1, time.Nanosecond)
	ml.allow("stale")
	time.Sleep(2 * time.Millisecond)
	// touching another key sweeps the idle bucket
	ml.allow("fresh")

	ml.mu.Lock()
	_, ok := ml.buckets["stale"]
	ml.mu.Unlock()
	if ok {
		t.Fatal("idle bucket not evicted")
	}
}
