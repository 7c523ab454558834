package rating

import (
	"context"
	"testing"
	"time"

	"speedwordle/internal/bot"
)

func TestMemoryServiceCommitHumanVsHumanWinner(t *testing.T) {
	s := NewMemoryService()
	res, err := s.CommitHumanVsHuman(context.Background(), HumanMatch{
		MatchID:              "m1",
		PlayerAID:            "alice",
		PlayerBID:            "bob",
		WinnerID:             "alice",
		PlayerARatingAtStart: 1200,
		PlayerBRatingAtStart: 1200,
		PlayedAt:             time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PlayerADelta <= 0 {
		t.Fatalf("expected winner delta > 0, got %d", res.PlayerADelta)
	}
	if res.PlayerBDelta >= 0 {
		t.Fatalf("expected loser delta < 0, got %d", res.PlayerBDelta)
	}
	if s.RatingOf("alice") != res.PlayerANewElo {
		t.Fatalf("rating not recorded for winner")
	}
	if s.wins["alice"] != 1 || s.losses["bob"] != 1 {
		t.Fatalf("win/loss counters not updated: wins=%v losses=%v", s.wins, s.losses)
	}
}

func TestMemoryServiceCommitHumanVsHumanDraw(t *testing.T) {
	s := NewMemoryService()
	res, err := s.CommitHumanVsHuman(context.Background(), HumanMatch{
		MatchID:              "m2",
		PlayerAID:            "alice",
		PlayerBID:            "bob",
		IsDraw:                true,
		PlayerARatingAtStart: 1200,
		PlayerBRatingAtStart: 1200,
		PlayedAt:             time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PlayerADelta != 0 || res.PlayerBDelta != 0 {
		t.Fatalf("expected no rating change for an equal-rated draw, got a=%d b=%d", res.PlayerADelta, res.PlayerBDelta)
	}
}

func TestMemoryServiceCommitHumanVsSyntheticHalvesK(t *testing.T) {
	s := NewMemoryService()
	res, err := s.CommitHumanVsSynthetic(context.Background(), BotMatch{
		MatchID:            "m3",
		HumanID:            "alice",
		HumanRatingAtStart: 1200,
		HumanWon:           true,
		BotDifficulty:      bot.Hard,
		BotRating:          1400,
		PlayedAt:           time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	full := NewRating(1200, 1400, KBase, ScoreWin) - 1200
	if res.HumanDelta >= full {
		t.Fatalf("expected bot-match delta to be smaller than a full-K human delta: got %d, full-K would be %d", res.HumanDelta, full)
	}
	if s.games["alice"] != 1 {
		t.Fatalf("expected games played to increment")
	}
}

func TestMemoryServiceRatingOfDefaultsWhenUnseen(t *testing.T) {
	s := NewMemoryService()
	if s.RatingOf("nobody") != Default {
		t.Fatalf("expected default rating for unseen player")
	}
}
