package lobby

import (
	"math/rand"
	"testing"
)

func newTestLobby(maxBalls int) *Lobby {
	return New(maxBalls, 20, rand.New(rand.NewSource(1)))
}

func TestJoinIsIdempotent(t *testing.T) {
	l := newTestLobby(50)

	l.Join("u1", "Alice", false)
	l.AddBalls("u1", "Alice", 3)
	l.Join("u1", "Alicia", true)

	if l.Len() != 1 {
		t.Fatalf("Expected 1 player after double join, got %d", l.Len())
	}

	p, _ := l.Player("u1")
	if p.DisplayName != "Alicia" {
		t.Errorf("Rejoin should refresh the display name, got %q", p.DisplayName)
	}
	if !p.IsAdmin {
		t.Error("Rejoin should refresh the admin flag")
	}
	if len(p.Balls) != 3 {
		t.Errorf("Rejoin must not touch purchased balls, got %d", len(p.Balls))
	}
}

func TestAddBallsCreatesEntry(t *testing.T) {
	l := newTestLobby(50)

	total, err := l.AddBalls("u1", "Alice", 5)
	if err != nil {
		t.Fatalf("AddBalls failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if l.FundedPlayers() != 1 {
		t.Errorf("Expected 1 funded player, got %d", l.FundedPlayers())
	}
}

func TestAddBallsRejectsInvalidCount(t *testing.T) {
	l := newTestLobby(50)

	for _, count := range []int{0, -1} {
		if _, err := l.AddBalls("u1", "Alice", count); err != ErrInvalidCount {
			t.Errorf("Count %d: expected ErrInvalidCount, got %v", count, err)
		}
	}
	if l.Len() != 0 {
		t.Error("Rejected purchase must not create a lobby entry")
	}
}

func TestAddBallsCapIsAtomic(t *testing.T) {
	l := newTestLobby(10)

	if _, err := l.AddBalls("u1", "Alice", 8); err != nil {
		t.Fatalf("AddBalls failed: %v", err)
	}

	// 8 + 5 would cross the cap of 10: the whole purchase is rejected
	total, err := l.AddBalls("u1", "Alice", 5)
	if err != ErrCapacityExceeded {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}
	if total != 8 {
		t.Errorf("Rejected purchase must not add any balls, total is %d", total)
	}

	// Filling exactly to the cap is allowed
	total, err = l.AddBalls("u1", "Alice", 2)
	if err != nil {
		t.Fatalf("Filling to the cap should succeed, got %v", err)
	}
	if total != 10 {
		t.Errorf("Expected total 10, got %d", total)
	}
}

func TestBallIDsAreUniquePerPlayer(t *testing.T) {
	l := newTestLobby(50)

	l.AddBalls("u1", "Alice", 3)
	l.AddBalls("u1", "Alice", 2)

	p, _ := l.Player("u1")
	seen := make(map[string]bool)
	for _, b := range p.Balls {
		if seen[b.ID] {
			t.Errorf("Duplicate ball ID %q", b.ID)
		}
		seen[b.ID] = true
		if b.Color == "" {
			t.Errorf("Ball %q has no color", b.ID)
		}
	}
}

func TestSnapshotPreservesJoinOrder(t *testing.T) {
	l := newTestLobby(50)

	l.AddBalls("u2", "Bob", 1)
	l.Join("u1", "Alice", false)
	l.AddBalls("u3", "Carol", 2)

	snap := l.Snapshot()
	if snap.TotalPlayers != 3 {
		t.Fatalf("Expected 3 total players, got %d", snap.TotalPlayers)
	}

	wantOrder := []string{"Bob", "Alice", "Carol"}
	for i, want := range wantOrder {
		if snap.Players[i].Username != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, snap.Players[i].Username)
		}
	}
	if snap.Players[0].BallCount != 1 || snap.Players[1].BallCount != 0 || snap.Players[2].BallCount != 2 {
		t.Errorf("Ball counts wrong: %+v", snap.Players)
	}
}

func TestDrainReturnsFundedInJoinOrderAndClears(t *testing.T) {
	l := newTestLobby(50)

	l.AddBalls("u2", "Bob", 1)
	l.Join("u1", "Alice", false) // no balls, not race-eligible
	l.AddBalls("u3", "Carol", 2)

	drained := l.Drain()
	if len(drained) != 2 {
		t.Fatalf("Expected 2 funded players, got %d", len(drained))
	}
	if drained[0].UserID != "u2" || drained[1].UserID != "u3" {
		t.Errorf("Drain order wrong: %s, %s", drained[0].UserID, drained[1].UserID)
	}

	if l.Len() != 0 || l.TotalBalls() != 0 {
		t.Error("Drain must leave the lobby empty")
	}
}

func TestPlayerCap(t *testing.T) {
	l := New(50, 2, rand.New(rand.NewSource(1)))

	l.AddBalls("u1", "Alice", 1)
	l.AddBalls("u2", "Bob", 1)

	if p := l.Join("u3", "Carol", false); p != nil {
		t.Error("Join past the player cap should be rejected")
	}
	if _, err := l.AddBalls("u3", "Carol", 1); err != ErrLobbyFull {
		t.Errorf("Expected ErrLobbyFull, got %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("Rejected entries must not appear, lobby has %d", l.Len())
	}

	// Existing players are unaffected by the cap
	if _, err := l.AddBalls("u1", "Alice", 1); err != nil {
		t.Errorf("Existing player blocked by the cap: %v", err)
	}
}

func TestRemove(t *testing.T) {
	l := newTestLobby(50)

	l.AddBalls("u1", "Alice", 1)
	l.AddBalls("u2", "Bob", 1)
	l.Remove("u1")

	if l.Len() != 1 {
		t.Fatalf("Expected 1 player after remove, got %d", l.Len())
	}
	snap := l.Snapshot()
	if snap.Players[0].Username != "Bob" {
		t.Errorf("Expected Bob to remain, got %q", snap.Players[0].Username)
	}

	// Removing an unknown player is a no-op
	l.Remove("ghost")
	if l.Len() != 1 {
		t.Error("Removing an unknown player must not change the lobby")
	}
}
