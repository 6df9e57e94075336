package ratelimit

import "testing"

func TestLimiterPerKey(t *testing.T) {
	l := NewLimiter(2)
	defer l.Stop()

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if l.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("other keys have their own bucket")
	}
	for range 10 {
		if !l.Allow("") {
			t.Fatalf("empty key is never limited")
		}
	}
}
