package match

import (
	"context"
	"testing"
	"time"

	"speedwordle/internal/bot"
	"speedwordle/internal/dictionary"
	"speedwordle/internal/store"
)

func TestHandleGuessDuplicateLetterEvaluation(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("ALLOY", "alice", "bob")
	act := newActor(m, e)

	act.handle(context.Background(), guessSubmitted{playerID: "alice", word: "LLAMA"})

	if len(pub.results) != 1 {
		t.Fatalf("expected one guess result, got %d", len(pub.results))
	}
	got := pub.results[0].Colors
	want := dictionary.Pattern{dictionary.Yellow, dictionary.Green, dictionary.Yellow, dictionary.Grey, dictionary.Grey}
	if got != want {
		t.Fatalf("pattern = %v, want %v", got, want)
	}
	if len(pub.opponent) != 1 || pub.opponent[0].Colors != want {
		t.Fatalf("opponent view should mirror the same masked pattern, got %+v", pub.opponent)
	}
}

func TestFirstToGuessWinsSerializesViaStore(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)

	finished := act.handle(context.Background(), guessSubmitted{playerID: "alice", word: "CRATE"})
	if !finished {
		t.Fatalf("expected match to finish on a correct guess")
	}
	if m.WinnerID != "alice" {
		t.Fatalf("expected alice to win, got winner=%q", m.WinnerID)
	}

	// A second correct guess arriving after the match is already finished
	// (the losing side of a real race) must not be allowed to overturn it.
	finished = act.handle(context.Background(), guessSubmitted{playerID: "bob", word: "CRATE"})
	if finished {
		t.Fatalf("handling a guess on an already-finished match should not re-finish it")
	}
	if len(pub.invalids) != 1 {
		t.Fatalf("expected the late guess to be rejected as match-not-active, got %v", pub.invalids)
	}
}

func TestDrawAfterSixGuessesEachWithNoWinner(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)
	ctx := context.Background()

	// Five wrong guesses each, none correct.
	for i := 0; i < 5; i++ {
		act.handle(ctx, guessSubmitted{playerID: "alice", word: "SHIRT"})
		act.handle(ctx, guessSubmitted{playerID: "bob", word: "SHIRT"})
	}

	finished := act.handle(ctx, guessSubmitted{playerID: "alice", word: "SHIRT"})
	if finished {
		t.Fatalf("match should not finish until both players exhaust all six guesses")
	}

	finished = act.handle(ctx, guessSubmitted{playerID: "bob", word: "SHIRT"})
	if !finished {
		t.Fatalf("expected match to finish once both players exhaust six guesses")
	}
	if m.WinnerID != "" {
		t.Fatalf("expected a draw (no winner), got %q", m.WinnerID)
	}
	if len(pub.ended) != 2 {
		t.Fatalf("expected two MatchEnded events, got %d", len(pub.ended))
	}
	for _, ev := range pub.ended {
		if ev.Result != ResultDraw {
			t.Fatalf("expected draw result for both players, got %v", ev.Result)
		}
	}
}

func TestForfeitAwardsWinToOpponent(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)

	finished := act.handle(context.Background(), forfeit{playerID: "alice"})
	if !finished {
		t.Fatalf("expected forfeit to finish the match")
	}
	if m.WinnerID != "bob" {
		t.Fatalf("expected bob to win on alice's forfeit, got %q", m.WinnerID)
	}

	var aliceEvent, bobEvent *MatchEndedEvent
	for i := range pub.ended {
		switch {
		case pub.ended[i].Result == ResultLoss:
			aliceEvent = &pub.ended[i]
		case pub.ended[i].Result == ResultWin:
			bobEvent = &pub.ended[i]
		}
	}
	if aliceEvent == nil || aliceEvent.Reason != "forfeit" {
		t.Fatalf("expected the forfeiting player's event to carry reason=forfeit, got %+v", aliceEvent)
	}
	if bobEvent == nil {
		t.Fatalf("expected a win event for the non-forfeiting player")
	}
}

func TestInformationMaskingNeverLeaksWordToOpponent(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)

	act.handle(context.Background(), guessSubmitted{playerID: "alice", word: "SHIRT"})

	if len(pub.opponent) != 1 {
		t.Fatalf("expected exactly one masked event to bob")
	}
	// OpponentGuessEvent has no Word field at all: the type itself enforces
	// the masking invariant, this just documents what is exposed.
	if pub.opponent[0].GuessNumber != 1 {
		t.Fatalf("expected guess number 1, got %d", pub.opponent[0].GuessNumber)
	}
	if len(pub.results) != 1 || pub.results[0].Word != "SHIRT" {
		t.Fatalf("expected the guesser's own event to carry the full word")
	}
}

func TestDisconnectGraceExpiryForfeits(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	e.cfg.DisconnectGraceMS = 15
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.run(ctx)

	act.submit(disconnect{playerID: "alice"})

	waitFor(t, time.Second, func() bool { return pub.endedCount() == 2 })

	if m.WinnerID != "bob" {
		t.Fatalf("expected bob to win after alice's disconnect grace expired, got %q", m.WinnerID)
	}
}

func TestRejoinWithinGraceCancelsForfeit(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	e.cfg.DisconnectGraceMS = 200
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.run(ctx)

	act.submit(disconnect{playerID: "alice"})
	act.submit(rejoin{playerID: "alice"})

	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.rejoined) == 1
	})

	// Give the (cancelled) grace timer time to have fired if it hadn't
	// actually been stopped.
	time.Sleep(250 * time.Millisecond)

	if pub.endedCount() != 0 {
		t.Fatalf("expected no forfeit after rejoining within the grace window, got %d ended events", pub.endedCount())
	}
}

func TestDisconnectFromBotMatchDoesNotAutoForfeit(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	e.cfg.DisconnectGraceMS = 15
	dict := dictionary.New()
	m := newHumanVsBotMatch("CRATE", "alice", bot.Easy, dict)
	act := newActor(m, e)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.run(ctx)

	act.submit(disconnect{playerID: "alice"})

	// Give the grace window (and then some) time to pass; since the human's
	// opponent is synthetic, no forfeit should ever fire.
	time.Sleep(100 * time.Millisecond)

	if pub.endedCount() != 0 {
		t.Fatalf("expected no forfeit for a disconnect against a bot opponent, got %d ended events", pub.endedCount())
	}
	if m.Status != StatusActive {
		t.Fatalf("expected the match to remain active, got %v", m.Status)
	}
}

func TestRejoinUnknownPlayerReportsMatchNotFound(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)

	act.handle(context.Background(), rejoin{playerID: "carol"})

	if len(pub.notFound) != 1 || pub.notFound[0] != "carol" {
		t.Fatalf("expected MatchNotFound for an unrecognized player, got %v", pub.notFound)
	}
}

func TestHandleGuessPersistsMatchStateThroughStore(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	act := newActor(m, e)
	ctx := context.Background()

	act.handle(ctx, guessSubmitted{playerID: "alice", word: "SHIRT"})

	var stored Match
	if err := e.store.Get(ctx, store.MatchKey(m.ID), &stored); err != nil {
		t.Fatalf("expected the match to be persisted in the store, got error: %v", err)
	}
	if len(stored.Players["alice"].Guesses) != 1 {
		t.Fatalf("expected the persisted match to carry alice's guess, got %+v", stored.Players["alice"].Guesses)
	}
}

func TestEndMatchRemovesPersistedStateAndPlayerIndex(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	e.spawn(context.Background(), m)
	act, _ := e.actorFor(m.ID)
	ctx := context.Background()

	finished := act.handle(ctx, guessSubmitted{playerID: "alice", word: "CRATE"})
	if !finished {
		t.Fatalf("expected the match to finish on a correct guess")
	}

	var stored Match
	if err := e.store.Get(ctx, store.MatchKey(m.ID), &stored); err == nil {
		t.Fatalf("expected the finished match's persisted state to be removed from the store")
	}
	var matchID string
	if err := e.store.Get(ctx, store.PlayerMatchKey("alice"), &matchID); err == nil {
		t.Fatalf("expected alice's player index entry to be removed from the store")
	}
}

func TestGuessAfterMatchTTLExpiryIsRejected(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEngine(t, pub)
	e.cfg.MatchTTL = 20 * time.Millisecond
	m := newTwoPlayerMatch("CRATE", "alice", "bob")
	m.StartedAt = time.Now().Add(-time.Hour)
	act := newActor(m, e)

	finished := act.handle(context.Background(), guessSubmitted{playerID: "alice", word: "SHIRT"})
	if !finished {
		t.Fatalf("expected an expired match to finalize rather than accept the guess")
	}
	if len(pub.invalids) != 1 {
		t.Fatalf("expected the late guess to be rejected, got %v", pub.invalids)
	}
	if m.WinnerID != "" {
		t.Fatalf("expected no winner when a match ends due to expiry, got %q", m.WinnerID)
	}
}
