package rating

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"speedwordle/internal/logging"
)

// PGService commits rating updates against Postgres. Both mutation paths run
// inside a single transaction: a commit either lands every row or none of
// them, so a rating update is never observed half-applied.
type PGService struct {
	pool   *pgxpool.Pool
	logger *logging.Logger
}

func NewPGService(pool *pgxpool.Pool, logger *logging.Logger) *PGService {
	return &PGService{pool: pool, logger: logger}
}

var _ Service = (*PGService)(nil)

func (s *PGService) CommitHumanVsHuman(ctx context.Context, m HumanMatch) (HumanMatchResult, error) {
	var result HumanMatchResult

	winnerID := m.WinnerID
	var winnerScore, loserScore Score
	var aScore, bScore Score
	if m.IsDraw {
		aScore, bScore = ScoreDraw, ScoreDraw
	} else {
		winnerScore, loserScore = ScoreWin, ScoreLoss
		if winnerID == m.PlayerAID {
			aScore, bScore = winnerScore, loserScore
		} else {
			aScore, bScore = loserScore, winnerScore
		}
	}

	aNew := NewRating(m.PlayerARatingAtStart, m.PlayerBRatingAtStart, KBase, aScore)
	bNew := NewRating(m.PlayerBRatingAtStart, m.PlayerARatingAtStart, KBase, bScore)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("begin rating tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := applyPlayerUpdate(ctx, tx, m.PlayerAID, aNew, aScore); err != nil {
		return result, fmt.Errorf("apply player a update: %w", err)
	}
	if err := applyPlayerUpdate(ctx, tx, m.PlayerBID, bNew, bScore); err != nil {
		return result, fmt.Errorf("apply player b update: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO matches
			(id, player_a_id, player_b_id, winner_id, target_word, replay_log,
			 player_a_rating_before, player_a_rating_after,
			 player_b_rating_before, player_b_rating_after,
			 duration_ms, is_bot_match, played_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, false, $12)
	`, m.MatchID, m.PlayerAID, m.PlayerBID, winnerID, m.TargetWord, m.ReplayLog,
		m.PlayerARatingAtStart, aNew, m.PlayerBRatingAtStart, bNew, m.DurationMs, m.PlayedAt)
	if err != nil {
		return result, fmt.Errorf("insert match history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit rating tx: %w", err)
	}

	if s.logger != nil {
		s.logger.LogGameEvent(ctx, logging.GameEventFields{
			EventType: "rating_committed",
			MatchID:   m.MatchID,
			PlayerID:  m.PlayerAID,
		})
	}

	return HumanMatchResult{
		PlayerADelta:  aNew - m.PlayerARatingAtStart,
		PlayerANewElo: aNew,
		PlayerBDelta:  bNew - m.PlayerBRatingAtStart,
		PlayerBNewElo: bNew,
	}, nil
}

func (s *PGService) CommitHumanVsSynthetic(ctx context.Context, m BotMatch) (BotMatchResult, error) {
	var result BotMatchResult

	var humanScore Score
	switch {
	case m.IsDraw:
		humanScore = ScoreDraw
	case m.HumanWon:
		humanScore = ScoreWin
	default:
		humanScore = ScoreLoss
	}

	humanNew := NewRating(m.HumanRatingAtStart, m.BotRating, KHalved, humanScore)

	var winnerID string
	if m.HumanWon {
		winnerID = m.HumanID
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("begin rating tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := applyPlayerUpdate(ctx, tx, m.HumanID, humanNew, humanScore); err != nil {
		return result, fmt.Errorf("apply human update: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO matches
			(id, player_a_id, player_b_id, winner_id, target_word, replay_log,
			 player_a_rating_before, player_a_rating_after,
			 player_b_rating_before, player_b_rating_after,
			 duration_ms, is_bot_match, bot_difficulty, played_at)
		VALUES ($1, $2, NULL, NULLIF($3, ''), $4, $5, $6, $7, $8, $8, $9, true, $10, $11)
	`, m.MatchID, m.HumanID, winnerID, m.TargetWord, m.ReplayLog,
		m.HumanRatingAtStart, humanNew, m.BotRating, m.DurationMs, string(m.BotDifficulty), m.PlayedAt)
	if err != nil {
		return result, fmt.Errorf("insert bot match history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit rating tx: %w", err)
	}

	return BotMatchResult{
		HumanDelta:  humanNew - m.HumanRatingAtStart,
		HumanNewElo: humanNew,
	}, nil
}

// applyPlayerUpdate bumps a player's rating and win/loss/gamesPlayed
// counters in one statement, inside the caller's transaction.
func applyPlayerUpdate(ctx context.Context, tx pgx.Tx, playerID string, newRating int, score Score) error {
	wins, losses := 0, 0
	switch score {
	case ScoreWin:
		wins = 1
	case ScoreLoss:
		losses = 1
	}
	_, err := tx.Exec(ctx, `
		UPDATE users
		SET rating = $2,
		    wins = wins + $3,
		    losses = losses + $4,
		    games_played = games_played + 1
		WHERE id = $1
	`, playerID, newRating, wins, losses)
	return err
}
