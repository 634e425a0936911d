package httpmiddleware

import (
	"testing"
	"time"
)

func TestTokenBucketAllowAndDeny(t *testing.T) {
	l := NewTokenBucket(3, 60)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1", now) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allow("10.0.0.1", now) {
		t.Error("request past capacity should be denied")
	}
	// Other clients have their own buckets.
	if !l.allow("10.0.0.2", now) {
		t.Error("fresh client should be allowed")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	l := NewTokenBucket(1, 60)
	now := time.Now()

	if !l.allow("10.0.0.1", now) {
		t.Fatal("first request should be allowed")
	}
	if l.allow("10.0.0.1", now) {
		t.Fatal("second immediate request should be denied")
	}
	// 60/min refills one token per second.
	if !l.allow("10.0.0.1", now.Add(time.Second)) {
		t.Error("request after refill interval should be allowed")
	}
}

func TestTokenBucketPrunesStaleClients(t *testing.T) {
	l := NewTokenBucket(1, 60)
	now := time.Now()

	l.allow("10.0.0.1", now)
	l.allow("10.0.0.2", now)

	l.allow("10.0.0.3", now.Add(staleAfter+time.Minute))
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.state) != 1 {
		t.Errorf("state holds %d buckets, want only the fresh one", len(l.state))
	}
}
