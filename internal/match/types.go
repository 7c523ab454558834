// Package match implements the per-match lifecycle state machine and guess
// pipeline: each live match runs as a single actor goroutine reading from a
// typed inbox, so the only cross-process coordination point remaining is the
// game state store's win-claim primitive.
package match

import (
	"time"

	"speedwordle/internal/bot"
	"speedwordle/internal/dictionary"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// GuessRecord is one submitted guess and its color evaluation.
type GuessRecord struct {
	Word       string             `json:"word"`
	Ordinal    int                `json:"ordinal"`
	Timestamp  time.Time          `json:"timestamp"`
	Evaluation dictionary.Pattern `json:"evaluation"`
}

// PlayerSlot is one side of a match.
type PlayerSlot struct {
	ID                  string              `json:"id"`
	DisplayName         string              `json:"displayName"`
	RatingAtStart       int                 `json:"ratingAtStart"`
	Guesses             []GuessRecord       `json:"guesses"`
	IsSynthetic         bool                `json:"isSynthetic"`
	SyntheticDifficulty bot.Difficulty      `json:"syntheticDifficulty,omitempty"`
	BotState            *bot.SyntheticState `json:"botState,omitempty"`
}

// ReplayEvent is one entry of a match's ordered event log.
type ReplayEvent struct {
	Type      string       `json:"type"` // "guess" | "forfeit"
	PlayerID  string       `json:"playerId"`
	Timestamp time.Time    `json:"timestamp"`
	Guess     *GuessRecord `json:"guess,omitempty"`
}

// Match is the authoritative live state of one game, as persisted through
// the game state store.
type Match struct {
	ID         string                 `json:"id"`
	Target     string                 `json:"target"`
	Status     Status                 `json:"status"`
	StartedAt  time.Time              `json:"startedAt"`
	EndedAt    time.Time              `json:"endedAt,omitempty"`
	Players    map[string]*PlayerSlot `json:"players"`
	WinnerID   string                 `json:"winnerId,omitempty"`
	ReplayLog  []ReplayEvent          `json:"replayLog"`
	IsBotMatch bool                   `json:"isBotMatch"`
}

func (m *Match) opponentOf(playerID string) *PlayerSlot {
	for id, p := range m.Players {
		if id != playerID {
			return p
		}
	}
	return nil
}

func (m *Match) otherPlayerID(playerID string) string {
	for id := range m.Players {
		if id != playerID {
			return id
		}
	}
	return ""
}

const MaxGuesses = 6

// PlayerInit describes one human joining a new match.
type PlayerInit struct {
	ID            string
	DisplayName   string
	RatingAtStart int
}
