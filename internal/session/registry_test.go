package session

import "testing"

type fakeHandle string

func (h fakeHandle) ID() string { return string(h) }

func TestRegisterAndHandlesFor(t *testing.T) {
	r := NewRegistry()
	h1 := fakeHandle("conn-1")
	h2 := fakeHandle("conn-2")

	r.Register("player-a", h1)
	r.Register("player-a", h2)

	handles := r.HandlesFor("player-a")
	if len(handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(handles))
	}
}

func TestUnregisterReportsEmpty(t *testing.T) {
	r := NewRegistry()
	h1 := fakeHandle("conn-1")

	r.Register("player-a", h1)
	playerID, empty := r.Unregister(h1)

	if playerID != "player-a" {
		t.Errorf("expected owner player-a, got %q", playerID)
	}
	if !empty {
		t.Error("expected handle set to be empty after unregistering the only handle")
	}
	if r.IsConnected("player-a") {
		t.Error("expected player-a to be disconnected")
	}
}

func TestUnregisterKeepsOtherHandles(t *testing.T) {
	r := NewRegistry()
	h1 := fakeHandle("conn-1")
	h2 := fakeHandle("conn-2")

	r.Register("player-a", h1)
	r.Register("player-a", h2)

	_, empty := r.Unregister(h1)
	if empty {
		t.Error("did not expect empty handle set while conn-2 remains")
	}
	if !r.IsConnected("player-a") {
		t.Error("expected player-a to remain connected via conn-2")
	}
}

func TestReRegisteringHandleMovesOwnership(t *testing.T) {
	r := NewRegistry()
	h1 := fakeHandle("conn-1")

	r.Register("player-a", h1)
	r.Register("player-b", h1)

	if owner, _ := r.PlayerFor(h1); owner != "player-b" {
		t.Errorf("expected conn-1 to now belong to player-b, got %q", owner)
	}
	if r.IsConnected("player-a") {
		t.Error("expected player-a to have no handles after handoff")
	}
}

func TestPlayerForUnknownHandle(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.PlayerFor(fakeHandle("missing")); ok {
		t.Error("expected ok=false for unregistered handle")
	}
}
