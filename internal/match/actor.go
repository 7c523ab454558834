package match

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"speedwordle/internal/bot"
	"speedwordle/internal/dictionary"
	"speedwordle/internal/rating"
)

// Inbox message types. Every mutation to a live Match flows through exactly
// one of these, read by the actor's own goroutine, so Match itself needs no
// locking.
type guessSubmitted struct {
	playerID string
	word     string
}

type botTick struct{}

type forfeit struct {
	playerID string
}

type disconnect struct {
	playerID string
}

type rejoin struct {
	playerID string
}

// actor drives one match's lifecycle from its own goroutine.
type actor struct {
	match  *Match
	engine *Engine
	inbox  chan interface{}
	rng    *rand.Rand

	disconnectTimers map[string]*time.Timer
	botTimer         *time.Timer
}

func newActor(m *Match, e *Engine) *actor {
	return &actor{
		match:            m,
		engine:           e,
		inbox:            make(chan interface{}, 32),
		rng:              newRNG(),
		disconnectTimers: make(map[string]*time.Timer),
	}
}

func (a *actor) submit(msg interface{}) {
	select {
	case a.inbox <- msg:
	default:
		// Inbox saturated: drop silently rather than block the caller. A
		// match actor should never build up this much backlog in practice.
	}
}

func (a *actor) scheduleBotTick() {
	delay := bot.Pace(a.botSlot().SyntheticDifficulty, a.rng)
	a.botTimer = time.AfterFunc(delay, func() {
		a.submit(botTick{})
	})
}

func (a *actor) botSlot() *PlayerSlot {
	return a.match.Players[botPlayerID]
}

func (a *actor) run(ctx context.Context) {
	defer a.cleanup()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			if a.handle(ctx, msg) {
				return
			}
		}
	}
}

func (a *actor) cleanup() {
	for _, t := range a.disconnectTimers {
		t.Stop()
	}
	if a.botTimer != nil {
		a.botTimer.Stop()
	}
}

// handle processes one inbox message and returns true if the match has now
// finished and the actor should exit.
func (a *actor) handle(ctx context.Context, msg interface{}) bool {
	switch m := msg.(type) {
	case guessSubmitted:
		return a.handleGuess(ctx, m.playerID, m.word)
	case botTick:
		return a.handleBotTick(ctx)
	case forfeit:
		return a.handleForfeit(ctx, m.playerID)
	case disconnect:
		a.handleDisconnect(m.playerID)
		return false
	case rejoin:
		a.handleRejoin(m.playerID)
		return false
	}
	return false
}

func (a *actor) handleGuess(ctx context.Context, playerID, word string) bool {
	if a.match.Status != StatusActive {
		a.engine.pub.GuessInvalid(playerID, ErrMatchNotActive.Error())
		return false
	}
	if a.expired() {
		a.engine.pub.GuessInvalid(playerID, ErrMatchExpired.Error())
		return a.endMatch(ctx, "", "expired")
	}
	slot, ok := a.match.Players[playerID]
	if !ok {
		a.engine.pub.GuessInvalid(playerID, ErrNotYourMatch.Error())
		return false
	}
	if len(slot.Guesses) >= MaxGuesses {
		a.engine.pub.GuessInvalid(playerID, ErrNoGuessesRemaining.Error())
		return false
	}

	word = normalizeGuess(word)
	if len(word) != dictionary.WordLength || !a.engine.dict.IsValidGuess(word) {
		a.engine.pub.GuessInvalid(playerID, ErrInvalidGuess.Error())
		return false
	}

	pattern := dictionary.Evaluate(word, a.match.Target)
	ordinal := len(slot.Guesses) + 1
	record := GuessRecord{Word: word, Ordinal: ordinal, Timestamp: time.Now(), Evaluation: pattern}
	slot.Guesses = append(slot.Guesses, record)
	a.match.ReplayLog = append(a.match.ReplayLog, ReplayEvent{Type: "guess", PlayerID: playerID, Timestamp: record.Timestamp, Guess: &record})
	a.engine.persistMatch(ctx, a.match)

	a.engine.pub.GuessResult(playerID, GuessResultEvent{
		Word: word, Colors: pattern, GuessNumber: ordinal,
		IsCorrect: pattern.AllGreen(), RemainingGuesses: MaxGuesses - ordinal,
	})

	opponentID := a.match.otherPlayerID(playerID)
	if opponentID != "" && opponentID != botPlayerID {
		a.engine.pub.OpponentGuess(opponentID, OpponentGuessEvent{Colors: pattern, GuessNumber: ordinal})
	}

	if pattern.AllGreen() {
		return a.concludeOnCorrectGuess(ctx, playerID)
	}

	if a.bothExhausted() {
		return a.endMatch(ctx, "", "exhausted")
	}

	a.rescheduleBotIfNeeded()
	return false
}

// expired reports whether the match has outlived its configured TTL. A
// guess arriving after expiry is rejected and the match is finalized rather
// than left to linger past the window the store would have expired it under
// anyway.
func (a *actor) expired() bool {
	return time.Since(a.match.StartedAt) > a.engine.ttl()
}

// rescheduleBotIfNeeded restarts the bot's pacing timer after a human guess,
// so its next tick counts pacing from the latest event rather than match
// start.
func (a *actor) rescheduleBotIfNeeded() {
	slot := a.botSlot()
	if slot == nil || slot.BotState == nil || len(slot.Guesses) >= MaxGuesses {
		return
	}
	if a.botTimer != nil {
		a.botTimer.Stop()
	}
	a.scheduleBotTick()
}

func (a *actor) concludeOnCorrectGuess(ctx context.Context, playerID string) bool {
	ttl := a.engine.cfg.MatchTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claimed, err := a.engine.store.TryClaimWinner(ctx, a.match.ID, playerID, ttl)
	if err != nil {
		a.engine.reportFailure(ctx, err, "match: win claim failed", "match_store", a.match.ID)
	}

	winner := playerID
	if !claimed {
		if existing, rerr := a.engine.store.ReadWinner(ctx, a.match.ID); rerr == nil && existing != nil {
			winner = existing.PlayerID
		}
	}
	return a.endMatch(ctx, winner, "solved")
}

func (a *actor) bothExhausted() bool {
	for _, p := range a.match.Players {
		if len(p.Guesses) < MaxGuesses {
			return false
		}
	}
	return true
}

func (a *actor) handleBotTick(ctx context.Context) bool {
	if a.match.Status != StatusActive {
		return false
	}
	if a.expired() {
		return a.endMatch(ctx, "", "expired")
	}
	slot := a.botSlot()
	if slot == nil || slot.BotState == nil || len(slot.Guesses) >= MaxGuesses {
		return false
	}

	guess := bot.NextGuess(*slot.BotState, a.engine.dict, a.rng)
	pattern := dictionary.Evaluate(guess, a.match.Target)
	ordinal := len(slot.Guesses) + 1
	record := GuessRecord{Word: guess, Ordinal: ordinal, Timestamp: time.Now(), Evaluation: pattern}
	slot.Guesses = append(slot.Guesses, record)
	a.match.ReplayLog = append(a.match.ReplayLog, ReplayEvent{Type: "guess", PlayerID: botPlayerID, Timestamp: record.Timestamp, Guess: &record})

	next := bot.Advance(*slot.BotState, guess, pattern)
	slot.BotState = &next
	a.engine.persistMatch(ctx, a.match)

	if human := a.humanOpponentOf(botPlayerID); human != "" {
		a.engine.pub.OpponentGuess(human, OpponentGuessEvent{Colors: pattern, GuessNumber: ordinal})
	}

	if pattern.AllGreen() {
		return a.concludeOnCorrectGuess(ctx, botPlayerID)
	}

	if a.bothExhausted() {
		return a.endMatch(ctx, "", "exhausted")
	}

	if len(slot.Guesses) < MaxGuesses {
		a.scheduleBotTick()
	}
	return false
}

func (a *actor) humanOpponentOf(playerID string) string {
	id := a.match.otherPlayerID(playerID)
	if id == botPlayerID {
		return ""
	}
	return id
}

func (a *actor) handleForfeit(ctx context.Context, playerID string) bool {
	if a.match.Status != StatusActive {
		return false
	}
	winner := a.match.otherPlayerID(playerID)
	return a.endMatch(ctx, winner, "forfeit")
}

// handleDisconnect starts a grace timer for playerID's session drop. The
// timer only forfeits on expiry if the opponent is human: a player idling
// against a bot keeps its slot open rather than auto-losing to a timer.
func (a *actor) handleDisconnect(playerID string) {
	if a.match.Status != StatusActive {
		return
	}
	if t, ok := a.disconnectTimers[playerID]; ok {
		t.Stop()
	}
	opponent := a.match.opponentOf(playerID)
	if opponent == nil || opponent.IsSynthetic {
		return
	}
	grace := time.Duration(a.engine.cfg.DisconnectGraceMS) * time.Millisecond
	if grace <= 0 {
		grace = 10 * time.Second
	}
	a.disconnectTimers[playerID] = time.AfterFunc(grace, func() {
		a.submit(forfeit{playerID: playerID})
	})
}

func (a *actor) handleRejoin(playerID string) {
	if t, ok := a.disconnectTimers[playerID]; ok {
		t.Stop()
		delete(a.disconnectTimers, playerID)
	}
	slot, ok := a.match.Players[playerID]
	if !ok {
		a.engine.pub.MatchNotFound(playerID)
		return
	}

	opponent := a.match.opponentOf(playerID)
	var progress []OpponentGuessEvent
	var oppInfo OpponentInfo
	if opponent != nil {
		oppInfo = OpponentInfo{Username: opponent.DisplayName, Elo: opponent.RatingAtStart, IsBot: opponent.IsSynthetic}
		for _, g := range opponent.Guesses {
			progress = append(progress, OpponentGuessEvent{Colors: g.Evaluation, GuessNumber: g.Ordinal})
		}
	}

	a.engine.pub.Rejoined(playerID, RejoinedEvent{
		MatchID:          a.match.ID,
		Guesses:          toSummaries(slot.Guesses),
		OpponentProgress: progress,
		Opponent:         oppInfo,
	})

	if a.match.Status == StatusActive {
		a.rescheduleBotIfNeeded()
	}
}

func toSummaries(guesses []GuessRecord) []GuessSummary {
	out := make([]GuessSummary, 0, len(guesses))
	for _, g := range guesses {
		out = append(out, GuessSummary{Word: g.Word, Colors: g.Evaluation})
	}
	return out
}

// endMatch finalizes the match: winnerID == "" means a draw. reason is one
// of "solved", "exhausted", "forfeit", or "expired".
func (a *actor) endMatch(ctx context.Context, winnerID string, reason string) bool {
	a.match.Status = StatusFinished
	a.match.EndedAt = time.Now()
	a.match.WinnerID = winnerID

	humanDeltas, humanElos := a.commitRating(ctx, winnerID)

	for playerID, slot := range a.match.Players {
		if playerID == botPlayerID {
			continue
		}
		opponent := a.match.opponentOf(playerID)
		result := ResultDraw
		switch {
		case winnerID == playerID:
			result = ResultWin
		case winnerID != "":
			result = ResultLoss
		}

		var oppSummary OpponentSummary
		if opponent != nil {
			oppSummary = OpponentSummary{Username: opponent.DisplayName, Guesses: toSummaries(opponent.Guesses)}
		}

		a.engine.pub.MatchEnded(playerID, MatchEndedEvent{
			MatchID:    a.match.ID,
			Result:     result,
			Reason:     reason,
			TargetWord: a.match.Target,
			Opponent:   oppSummary,
			MyGuesses:  toSummaries(slot.Guesses),
			EloChange:  humanDeltas[playerID],
			NewElo:     humanElos[playerID],
		})
	}

	a.engine.retire(ctx, a.match.ID)
	return true
}

func (a *actor) commitRating(ctx context.Context, winnerID string) (deltas, elos map[string]int) {
	deltas = make(map[string]int)
	elos = make(map[string]int)

	replay, err := json.Marshal(a.match.ReplayLog)
	if err != nil {
		replay = []byte("[]")
	}
	duration := a.match.EndedAt.Sub(a.match.StartedAt).Milliseconds()

	if a.match.IsBotMatch {
		var humanID string
		for id := range a.match.Players {
			if id != botPlayerID {
				humanID = id
			}
		}
		human := a.match.Players[humanID]
		botSlot := a.match.Players[botPlayerID]

		res, err := a.engine.rating.CommitHumanVsSynthetic(ctx, rating.BotMatch{
			MatchID:            a.match.ID,
			HumanID:            humanID,
			HumanRatingAtStart: human.RatingAtStart,
			HumanWon:           winnerID == humanID,
			IsDraw:             winnerID == "",
			BotDifficulty:      botSlot.SyntheticDifficulty,
			BotRating:          botSlot.RatingAtStart,
			TargetWord:         a.match.Target,
			ReplayLog:          replay,
			DurationMs:         duration,
			PlayedAt:           a.match.StartedAt,
		})
		if err != nil {
			a.engine.reportFailure(ctx, err, "match: rating commit failed", "match_rating", a.match.ID)
			deltas[humanID] = 0
			elos[humanID] = human.RatingAtStart
			return deltas, elos
		}
		deltas[humanID] = res.HumanDelta
		elos[humanID] = res.HumanNewElo
		return deltas, elos
	}

	var ids []string
	for id := range a.match.Players {
		ids = append(ids, id)
	}
	playerA, playerB := ids[0], ids[1]
	slotA, slotB := a.match.Players[playerA], a.match.Players[playerB]

	res, err := a.engine.rating.CommitHumanVsHuman(ctx, rating.HumanMatch{
		MatchID:              a.match.ID,
		PlayerAID:            playerA,
		PlayerBID:            playerB,
		WinnerID:             winnerID,
		IsDraw:               winnerID == "",
		PlayerARatingAtStart: slotA.RatingAtStart,
		PlayerBRatingAtStart: slotB.RatingAtStart,
		TargetWord:           a.match.Target,
		ReplayLog:            replay,
		DurationMs:           duration,
		PlayedAt:             a.match.StartedAt,
	})
	if err != nil {
		a.engine.reportFailure(ctx, err, "match: rating commit failed", "match_rating", a.match.ID)
		deltas[playerA], deltas[playerB] = 0, 0
		elos[playerA], elos[playerB] = slotA.RatingAtStart, slotB.RatingAtStart
		return deltas, elos
	}

	deltas[playerA], deltas[playerB] = res.PlayerADelta, res.PlayerBDelta
	elos[playerA], elos[playerB] = res.PlayerANewElo, res.PlayerBNewElo
	return deltas, elos
}

func normalizeGuess(word string) string {
	out := make([]byte, 0, len(word))
	for i := 0; i < len(word); i++ {
		c := word[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
