package multiplayer

import (
	"errors"
	"testing"
	"time"
)

func TestSlotRegistryResolve(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewSlotRegistry(10 * time.Minute)

	p, t1, err := r.Resolve("", now)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if p != Player1 || t1 == "" {
		t.Fatalf("First join should get Player 1 with a token, got %s %q", p, t1)
	}

	p, t2, err := r.Resolve("stranger", now)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if p != Player2 {
		t.Errorf("Second join should get Player 2, got %s", p)
	}
	if t2 == "stranger" || t2 == t1 {
		t.Errorf("Unknown token should be replaced by a fresh one, got %q", t2)
	}

	if _, _, err := r.Resolve("", now); !errors.Is(err, ErrRoomFull) {
		t.Errorf("Third join should fail with ErrRoomFull, got %v", err)
	}

	p, again, err := r.Resolve(t1, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Resolve() reconnect failed: %v", err)
	}
	if p != Player1 || again != t1 {
		t.Errorf("Reconnect should keep seat and token, got %s %q", p, again)
	}
	if got := r.Occupied(); got != [2]bool{true, true} {
		t.Errorf("Expected both seats occupied, got %v", got)
	}
}

func TestSlotRegistryExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewSlotRegistry(time.Minute)

	_, t1, _ := r.Resolve("", now)
	_, t2, _ := r.Resolve("", now)

	// Player 2 stays active, Player 1 goes quiet.
	r.Touch(Player2, now.Add(50*time.Second))
	later := now.Add(90 * time.Second)

	if _, ok := r.Lookup(t1, later); ok {
		t.Error("Expired token should not resolve")
	}
	if p, ok := r.Lookup(t2, later); !ok || p != Player2 {
		t.Errorf("Active token should still hold Player 2, got %s %v", p, ok)
	}

	p, t3, err := r.Resolve("", later)
	if err != nil {
		t.Fatalf("Resolve() after expiry failed: %v", err)
	}
	if p != Player1 || t3 == t1 {
		t.Errorf("Expired seat should be reclaimed with a new token, got %s %q", p, t3)
	}
}

func TestSlotRegistryNoTimeout(t *testing.T) {
	now := time.Now()
	r := NewSlotRegistry(0)
	_, tok, _ := r.Resolve("", now)
	if _, ok := r.Lookup(tok, now.Add(1000*time.Hour)); !ok {
		t.Error("Seats should never expire without a timeout")
	}
}

func TestSlotRegistryRestoreAndClone(t *testing.T) {
	now := time.Now()
	r := NewSlotRegistry(time.Hour, Slot{Token: "a", LastSeen: now}, Slot{})

	if p, ok := r.Lookup("a", now); !ok || p != Player1 {
		t.Fatalf("Restored token should hold Player 1, got %s %v", p, ok)
	}

	c := r.Clone()
	c.Release(Player1)
	if r.Slots()[0].Free() {
		t.Error("Release on a clone should not affect the original")
	}
	if !c.Slots()[0].Free() {
		t.Error("Release should free the seat")
	}
}
