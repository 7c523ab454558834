package rating

import (
	"context"
	"time"

	"speedwordle/internal/bot"
)

// HumanMatch describes a completed human-vs-human match for the rating
// transaction. WinnerID/LoserID are empty for a draw, in which case both
// players receive the draw score.
type HumanMatch struct {
	MatchID      string
	WinnerID     string
	LoserID      string
	IsDraw       bool
	PlayerARatingAtStart int
	PlayerBRatingAtStart int
	PlayerAID    string
	PlayerBID    string
	TargetWord   string
	ReplayLog    []byte // pre-serialized JSON, opaque to this package
	DurationMs   int64
	PlayedAt     time.Time
}

// HumanMatchResult carries the post-commit deltas the match engine folds
// into its terminal game:end event.
type HumanMatchResult struct {
	PlayerADelta   int
	PlayerANewElo  int
	PlayerBDelta   int
	PlayerBNewElo  int
}

// BotMatch describes a completed human-vs-synthetic match. Only the human's
// rating moves; K is halved per §4.G.
type BotMatch struct {
	MatchID           string
	HumanID           string
	HumanRatingAtStart int
	HumanWon          bool
	IsDraw            bool
	BotDifficulty     bot.Difficulty
	BotRating         int
	TargetWord        string
	ReplayLog         []byte
	DurationMs        int64
	PlayedAt          time.Time
}

type BotMatchResult struct {
	HumanDelta  int
	HumanNewElo int
}

// Service is the rating transaction boundary the match engine calls at
// match completion. Implementations must make CommitHumanVsHuman's six
// mutations (both ratings, both win/loss counters, both gamesPlayed
// counters, plus the history row) atomic.
type Service interface {
	CommitHumanVsHuman(ctx context.Context, m HumanMatch) (HumanMatchResult, error)
	CommitHumanVsSynthetic(ctx context.Context, m BotMatch) (BotMatchResult, error)
}
