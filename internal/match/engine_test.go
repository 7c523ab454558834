package match

import (
	"context"
	"testing"
	"time"

	"speedwordle/internal/bot"
	"speedwordle/internal/dictionary"
	"speedwordle/internal/rating"
	"speedwordle/internal/session"
	"speedwordle/internal/store"
)

func TestCreateMatchPublishesStartToBothSides(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)

	id := e.CreateMatch(context.Background(), PlayerInit{ID: "alice", DisplayName: "Alice", RatingAtStart: 1200}, PlayerInit{ID: "bob", DisplayName: "Bob", RatingAtStart: 1250})
	if id == "" {
		t.Fatalf("expected a non-empty match id")
	}

	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.started) == 2
	})

	matchID, ok := e.matchForPlayer("alice")
	if !ok || matchID != id {
		t.Fatalf("expected alice to be routed to match %q, got %q (ok=%v)", id, matchID, ok)
	}
}

func TestCreateBotMatchSchedulesFirstTick(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)

	id := e.CreateBotMatch(context.Background(), PlayerInit{ID: "alice", DisplayName: "Alice", RatingAtStart: 1800}, bot.Impossible, 1800)
	if id == "" {
		t.Fatalf("expected a non-empty match id")
	}

	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.started) == 1
	})
	if !pub.started[0].Opponent.IsBot {
		t.Fatalf("expected the opponent info to flag IsBot")
	}
	act, ok := e.actorFor(id)
	if !ok || act.botTimer == nil {
		t.Fatalf("expected the bot's first tick to be scheduled")
	}
}

func TestSubmitGuessRoutesToTheCorrectMatch(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)

	id := e.CreateMatch(context.Background(), PlayerInit{ID: "alice", DisplayName: "Alice"}, PlayerInit{ID: "bob", DisplayName: "Bob"})
	waitFor(t, time.Second, func() bool {
		_, ok := e.actorFor(id)
		return ok
	})

	if err := e.SubmitGuess(context.Background(), "alice", "CRATE"); err != nil {
		t.Fatalf("unexpected error submitting a guess: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.results) == 1
	})
}

func TestSubmitGuessForUnknownPlayerReportsNotFound(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)

	err := e.SubmitGuess(context.Background(), "ghost", "CRATE")
	if err == nil {
		t.Fatalf("expected an error for a player with no active match")
	}
	if len(pub.notFound) != 1 || pub.notFound[0] != "ghost" {
		t.Fatalf("expected MatchNotFound for the unknown player, got %v", pub.notFound)
	}
}

// TestRejoinRehydratesMatchFromStoreAfterRestart simulates a process restart
// by handing a rejoin to a fresh Engine that shares the first engine's store
// but has no in-memory actor of its own: the match must be rebuilt from the
// persisted state rather than reported as not found.
func TestRejoinRehydratesMatchFromStoreAfterRestart(t *testing.T) {
	pub := &fakePublisher{}
	sharedStore := store.NewMemory()
	dict := dictionary.New()

	original := NewEngine(dict, sharedStore, rating.NewMemoryService(), pub, nil, session.NewRegistry(), Config{MatchTTL: time.Hour})
	id := original.CreateMatch(context.Background(), PlayerInit{ID: "alice", DisplayName: "Alice"}, PlayerInit{ID: "bob", DisplayName: "Bob"})
	waitFor(t, time.Second, func() bool {
		_, ok := original.actorFor(id)
		return ok
	})
	if err := original.SubmitGuess(context.Background(), "alice", "SHIRT"); err != nil {
		t.Fatalf("unexpected error submitting a guess: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.results) == 1
	})

	restarted := NewEngine(dict, sharedStore, rating.NewMemoryService(), pub, nil, session.NewRegistry(), Config{MatchTTL: time.Hour})
	if err := restarted.Rejoin(context.Background(), "alice"); err != nil {
		t.Fatalf("expected rejoin to succeed against the rehydrated match, got: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.rejoined) == 1
	})
	if pub.rejoined[0].MatchID != id {
		t.Fatalf("expected the rehydrated match id %q, got %q", id, pub.rejoined[0].MatchID)
	}
	if len(pub.rejoined[0].Guesses) != 1 {
		t.Fatalf("expected alice's rehydrated guess history to carry her one guess, got %+v", pub.rejoined[0].Guesses)
	}
}
