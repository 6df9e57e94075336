package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("azure:token", "abc", time.Minute)
	val, ok := c.Get("azure:token")
	if !ok || val != "abc" {
		t.Fatalf("expected abc, got %q, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string]().WithClock(clock.now)
	c.Set("azure:token", "abc", time.Minute)

	clock.t = clock.t.Add(59 * time.Second)
	if _, ok := c.Get("azure:token"); !ok {
		t.Fatalf("expected token before expiry")
	}
	clock.t = clock.t.Add(time.Second)
	if _, ok := c.Get("azure:token"); ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestNonPositiveTTLIsIgnored(t *testing.T) {
	c := New[int]()
	c.Set("k", 1, 0)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected zero ttl to skip caching")
	}
}

func TestDelete(t *testing.T) {
	c := New[string]()
	c.Set("azure:tenant-a", "t1", time.Minute)
	c.Set("ramp:client", "r1", time.Minute)
	c.Delete("ramp:client")
	if _, ok := c.Get("ramp:client"); ok {
		t.Fatalf("expected deleted key to return false")
	}
	if _, ok := c.Get("azure:tenant-a"); !ok {
		t.Fatalf("expected other keys to survive")
	}
}
