package match

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"speedwordle/internal/bot"
	"speedwordle/internal/dictionary"
	"speedwordle/internal/logging"
	"speedwordle/internal/rating"
	"speedwordle/internal/session"
	"speedwordle/internal/store"
)

// Config holds the §4 tuning constants the engine needs beyond MaxGuesses.
type Config struct {
	MatchTTL          time.Duration
	DisconnectGraceMS int
}

// Engine owns every live match's actor goroutine and is the entry point the
// gateway and matchmaking queue call into.
type Engine struct {
	dict     *dictionary.Dictionary
	store    store.Store
	rating   rating.Service
	pub      Publisher
	logger   *logging.Logger
	sessions *session.Registry
	cfg      Config

	mu      sync.Mutex
	actors  map[string]*actor
	players map[string]string // playerID -> matchID, for rejoin/disconnect routing
}

func NewEngine(dict *dictionary.Dictionary, st store.Store, rs rating.Service, pub Publisher, logger *logging.Logger, sessions *session.Registry, cfg Config) *Engine {
	return &Engine{
		dict:     dict,
		store:    st,
		rating:   rs,
		pub:      pub,
		logger:   logger,
		sessions: sessions,
		cfg:      cfg,
		actors:   make(map[string]*actor),
		players:  make(map[string]string),
	}
}

func newMatchID() string {
	return uuid.NewString()
}

// Sessions exposes the engine's connection registry so the gateway can
// register and unregister handles without holding a second reference to it.
func (e *Engine) Sessions() *session.Registry {
	return e.sessions
}

// CreateMatch starts a human-vs-human match and publishes MatchStarted to
// both sides.
func (e *Engine) CreateMatch(ctx context.Context, a, b PlayerInit) string {
	m := &Match{
		ID:        newMatchID(),
		Target:    e.dict.RandomAnswer(),
		Status:    StatusActive,
		StartedAt: time.Now(),
		Players: map[string]*PlayerSlot{
			a.ID: {ID: a.ID, DisplayName: a.DisplayName, RatingAtStart: a.RatingAtStart},
			b.ID: {ID: b.ID, DisplayName: b.DisplayName, RatingAtStart: b.RatingAtStart},
		},
	}

	act := e.spawn(ctx, m)

	e.pub.MatchStarted(a.ID, MatchStartedEvent{MatchID: m.ID, Opponent: OpponentInfo{Username: b.DisplayName, Elo: b.RatingAtStart}})
	e.pub.MatchStarted(b.ID, MatchStartedEvent{MatchID: m.ID, Opponent: OpponentInfo{Username: a.DisplayName, Elo: a.RatingAtStart}})

	_ = act
	return m.ID
}

// CreateBotMatch starts a human-vs-synthetic match. The bot's first guess is
// scheduled after a pace delay drawn from its difficulty's window.
func (e *Engine) CreateBotMatch(ctx context.Context, human PlayerInit, difficulty bot.Difficulty, botRating int) string {
	botState := bot.NewState(difficulty, e.dict)
	m := &Match{
		ID:         newMatchID(),
		Target:     e.dict.RandomAnswer(),
		Status:     StatusActive,
		StartedAt:  time.Now(),
		IsBotMatch: true,
		Players: map[string]*PlayerSlot{
			human.ID: {ID: human.ID, DisplayName: human.DisplayName, RatingAtStart: human.RatingAtStart},
			botPlayerID: {
				ID: botPlayerID, DisplayName: "Bot", RatingAtStart: botRating,
				IsSynthetic: true, SyntheticDifficulty: difficulty, BotState: &botState,
			},
		},
	}

	act := e.spawn(ctx, m)

	e.pub.MatchStarted(human.ID, MatchStartedEvent{MatchID: m.ID, Opponent: OpponentInfo{Username: "Bot", Elo: botRating, IsBot: true}})
	act.scheduleBotTick()

	return m.ID
}

const botPlayerID = "__bot__"

func (e *Engine) spawn(ctx context.Context, m *Match) *actor {
	act := newActor(m, e)

	e.mu.Lock()
	e.actors[m.ID] = act
	for pid := range m.Players {
		if pid != botPlayerID {
			e.players[pid] = m.ID
		}
	}
	e.mu.Unlock()

	e.persistMatch(ctx, m)
	for pid := range m.Players {
		if pid != botPlayerID {
			e.persistPlayerIndex(ctx, pid, m.ID)
		}
	}

	go act.run(ctx)
	return act
}

// ttl returns the configured match lifetime, defaulting to spec.md's ~1h
// figure when unset.
func (e *Engine) ttl() time.Duration {
	if e.cfg.MatchTTL > 0 {
		return e.cfg.MatchTTL
	}
	return time.Hour
}

// persistMatch writes the match's full current state back through the
// store, per §4.C/§4.F's read-modify-write requirement. A failure here is
// logged (and reported to Sentry) but never blocks the in-memory state
// machine: the actor remains the authoritative copy for as long as it's
// alive.
func (e *Engine) persistMatch(ctx context.Context, m *Match) {
	if err := e.store.Put(ctx, store.MatchKey(m.ID), m, e.ttl()); err != nil {
		e.reportFailure(ctx, err, "match: persist failed", "match_store", m.ID)
	}
}

func (e *Engine) persistPlayerIndex(ctx context.Context, playerID, matchID string) {
	if err := e.store.Put(ctx, store.PlayerMatchKey(playerID), matchID, e.ttl()); err != nil {
		e.reportFailure(ctx, err, "match: persist player index failed", "match_store", matchID)
	}
}

func (e *Engine) deleteMatch(ctx context.Context, matchID string) {
	if err := e.store.Delete(ctx, store.MatchKey(matchID)); err != nil {
		e.reportFailure(ctx, err, "match: delete failed", "match_store", matchID)
	}
}

func (e *Engine) deletePlayerIndex(ctx context.Context, playerID string) {
	if err := e.store.Delete(ctx, store.PlayerMatchKey(playerID)); err != nil {
		e.reportFailure(ctx, err, "match: delete player index failed", "match_store", playerID)
	}
}

// reportFailure logs an error and forwards it to Sentry tagged by component
// and match id, so backend outages (store or rating persistence) show up as
// alertable events rather than only lines in stdout.
func (e *Engine) reportFailure(ctx context.Context, err error, msg, component, matchID string) {
	if e.logger != nil {
		e.logger.LogError(ctx, err, msg, "match_id", matchID)
	}
	logging.CaptureError(ctx, err, map[string]string{"component": component}, map[string]interface{}{"match_id": matchID})
}

// rehydrateMatch reconstructs a Match from the store. Used when a rejoin
// lands on a process that never spawned this match's actor: a restart, or a
// different gateway replica than the one the match started on.
func (e *Engine) rehydrateMatch(ctx context.Context, matchID string) (*Match, error) {
	var m Match
	if err := e.store.Get(ctx, store.MatchKey(matchID), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (e *Engine) actorFor(matchID string) (*actor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.actors[matchID]
	return a, ok
}

func (e *Engine) matchForPlayer(playerID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.players[playerID]
	return id, ok
}

// CurrentMatchID reports the match a player currently belongs to, if any, so
// callers can verify a client-supplied match id before routing an action.
func (e *Engine) CurrentMatchID(playerID string) (string, bool) {
	return e.matchForPlayer(playerID)
}

// Metrics summarizes live engine state for the health endpoint.
type Metrics struct {
	ActiveMatches int
	BotMatches    int
	TrackedPlayers int
}

func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := Metrics{ActiveMatches: len(e.actors), TrackedPlayers: len(e.players)}
	for _, act := range e.actors {
		if act.match.IsBotMatch {
			m.BotMatches++
		}
	}
	return m
}

func (e *Engine) retire(ctx context.Context, matchID string) {
	e.mu.Lock()
	var playerIDs []string
	if act, ok := e.actors[matchID]; ok {
		for pid := range act.match.Players {
			if e.players[pid] == matchID {
				delete(e.players, pid)
				playerIDs = append(playerIDs, pid)
			}
		}
	}
	delete(e.actors, matchID)
	e.mu.Unlock()

	e.deleteMatch(ctx, matchID)
	for _, pid := range playerIDs {
		e.deletePlayerIndex(ctx, pid)
	}
}

// SubmitGuess routes a guess to the player's live match actor.
func (e *Engine) SubmitGuess(ctx context.Context, playerID, word string) error {
	matchID, ok := e.matchForPlayer(playerID)
	if !ok {
		e.pub.MatchNotFound(playerID)
		return ErrMatchNotFound
	}
	act, ok := e.actorFor(matchID)
	if !ok {
		e.pub.MatchNotFound(playerID)
		return ErrMatchNotFound
	}
	act.submit(guessSubmitted{playerID: playerID, word: word})
	return nil
}

// Forfeit routes an explicit forfeit to the player's live match actor.
func (e *Engine) Forfeit(ctx context.Context, playerID string) error {
	matchID, ok := e.matchForPlayer(playerID)
	if !ok {
		return ErrMatchNotFound
	}
	act, ok := e.actorFor(matchID)
	if !ok {
		return ErrMatchNotFound
	}
	act.submit(forfeit{playerID: playerID})
	return nil
}

// Disconnect notifies the player's live match actor, if any, that its
// session dropped. A no-op if the player has no active match.
func (e *Engine) Disconnect(ctx context.Context, playerID string) {
	matchID, ok := e.matchForPlayer(playerID)
	if !ok {
		return
	}
	act, ok := e.actorFor(matchID)
	if !ok {
		return
	}
	act.submit(disconnect{playerID: playerID})
}

// Rejoin replays a player's in-progress match state back to them after a
// reconnect, provided their grace window has not expired. If this process
// has no in-memory actor for the player (a restart, or a different gateway
// replica than the one the match started on), it falls back to the store to
// find and rehydrate the match, per §4.C being the sole cross-process
// coordination point for live match state.
func (e *Engine) Rejoin(ctx context.Context, playerID string) error {
	matchID, ok := e.matchForPlayer(playerID)
	if !ok {
		var stored string
		if err := e.store.Get(ctx, store.PlayerMatchKey(playerID), &stored); err != nil || stored == "" {
			e.pub.MatchNotFound(playerID)
			return ErrMatchNotFound
		}
		matchID = stored
	}

	act, ok := e.actorFor(matchID)
	if !ok {
		m, err := e.rehydrateMatch(ctx, matchID)
		if err != nil {
			e.pub.MatchNotFound(playerID)
			return ErrMatchNotFound
		}
		act = e.spawn(ctx, m)
		if m.Status == StatusActive {
			if slot := m.Players[botPlayerID]; slot != nil && slot.BotState != nil {
				act.scheduleBotTick()
			}
		}
	}
	act.submit(rejoin{playerID: playerID})
	return nil
}

// newRNG is split out so tests can substitute a seeded source without
// threading one through every public method.
func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
