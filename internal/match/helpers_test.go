package match

import (
	"sync"
	"testing"
	"time"

	"speedwordle/internal/bot"
	"speedwordle/internal/dictionary"
	"speedwordle/internal/rating"
	"speedwordle/internal/session"
	"speedwordle/internal/store"
)

type fakePublisher struct {
	mu sync.Mutex

	started    []MatchStartedEvent
	results    []GuessResultEvent
	invalids   []string
	opponent   []OpponentGuessEvent
	rejoined   []RejoinedEvent
	notFound   []string
	ended      []MatchEndedEvent
}

func (f *fakePublisher) MatchStarted(playerID string, event MatchStartedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, event)
}

func (f *fakePublisher) GuessResult(playerID string, event GuessResultEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, event)
}

func (f *fakePublisher) GuessInvalid(playerID string, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalids = append(f.invalids, reason)
}

func (f *fakePublisher) OpponentGuess(playerID string, event OpponentGuessEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opponent = append(f.opponent, event)
}

func (f *fakePublisher) Rejoined(playerID string, event RejoinedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejoined = append(f.rejoined, event)
}

func (f *fakePublisher) MatchNotFound(playerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notFound = append(f.notFound, playerID)
}

func (f *fakePublisher) MatchEnded(playerID string, event MatchEndedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, event)
}

func (f *fakePublisher) endedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ended)
}

func (f *fakePublisher) endedSnapshot() []MatchEndedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MatchEndedEvent, len(f.ended))
	copy(out, f.ended)
	return out
}

func newTestEngine(t *testing.T, pub *fakePublisher) *Engine {
	t.Helper()
	dict := dictionary.New()
	return NewEngine(dict, store.NewMemory(), rating.NewMemoryService(), pub, nil, session.NewRegistry(), Config{
		MatchTTL:          time.Hour,
		DisconnectGraceMS: 30,
	})
}

func newTwoPlayerMatch(target, a, b string) *Match {
	return &Match{
		ID:        "test-match",
		Target:    target,
		Status:    StatusActive,
		StartedAt: time.Now(),
		Players: map[string]*PlayerSlot{
			a: {ID: a, DisplayName: a},
			b: {ID: b, DisplayName: b},
		},
	}
}

func newHumanVsBotMatch(target, humanID string, difficulty bot.Difficulty, dict *dictionary.Dictionary) *Match {
	state := bot.NewState(difficulty, dict)
	return &Match{
		ID:         "test-bot-match",
		Target:     target,
		Status:     StatusActive,
		StartedAt:  time.Now(),
		IsBotMatch: true,
		Players: map[string]*PlayerSlot{
			humanID: {ID: humanID, DisplayName: humanID},
			botPlayerID: {
				ID: botPlayerID, DisplayName: "Bot", IsSynthetic: true,
				SyntheticDifficulty: difficulty, BotState: &state,
			},
		},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}
