package server

import "testing"

// TestRegistryRegisterAndCount verifies basic insert and count behavior.
func TestRegistryRegisterAndCount(t *testing.T) {
	reg := newSessionRegistry()
	if got := reg.count(); got != 0 {
		t.Fatalf("Expected empty registry, got %d", got)
	}

	if !reg.register("conn-1", newSession(nil, "Alice")) {
		t.Fatal("First register returned false")
	}
	if !reg.register("conn-2", newSession(nil, "Bob")) {
		t.Fatal("Second register returned false")
	}
	if got := reg.count(); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}
}

// TestRegistryDuplicateRegister verifies that a connection id registers at
// most once; the existing entry wins.
func TestRegistryDuplicateRegister(t *testing.T) {
	reg := newSessionRegistry()
	first := newSession(nil, "Alice")
	reg.register("conn-1", first)

	if reg.register("conn-1", newSession(nil, "Impostor")) {
		t.Error("Duplicate register returned true")
	}
	if got := reg.count(); got != 1 {
		t.Errorf("Expected 1 session after duplicate register, got %d", got)
	}

	snap := reg.snapshot()
	if len(snap) != 1 || snap[0].Nickname() != "Alice" {
		t.Errorf("Existing entry was replaced: %+v", snap)
	}
}

// TestRegistryUnregister verifies removal returns the prior session and that
// unknown ids return nil.
func TestRegistryUnregister(t *testing.T) {
	reg := newSessionRegistry()
	reg.register("conn-1", newSession(nil, "Alice"))

	s := reg.unregister("conn-1")
	if s == nil || s.Nickname() != "Alice" {
		t.Fatalf("Expected Alice back from unregister, got %+v", s)
	}
	if got := reg.count(); got != 0 {
		t.Errorf("Expected empty registry after unregister, got %d", got)
	}

	if s := reg.unregister("conn-1"); s != nil {
		t.Errorf("Expected nil for repeated unregister, got %+v", s)
	}
	if s := reg.unregister("never-joined"); s != nil {
		t.Errorf("Expected nil for unknown id, got %+v", s)
	}
}

// TestRegistrySnapshotIsolation verifies that an in-flight snapshot does not
// observe mutations performed after it was taken.
func TestRegistrySnapshotIsolation(t *testing.T) {
	reg := newSessionRegistry()
	reg.register("conn-1", newSession(nil, "Alice"))
	reg.register("conn-2", newSession(nil, "Bob"))

	snap := reg.snapshot()
	reg.unregister("conn-1")
	reg.register("conn-3", newSession(nil, "Carol"))

	if len(snap) != 2 {
		t.Errorf("Snapshot observed registry mutation, length %d", len(snap))
	}
}
