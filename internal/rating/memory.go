package rating

import (
	"context"
	"sync"
)

// MemoryService is the in-process Service used when no persistent store URL
// is configured. It keeps ratings in memory only; match history rows are
// discarded. Used for local development and tests.
type MemoryService struct {
	mu       sync.Mutex
	ratings  map[string]int
	wins     map[string]int
	losses   map[string]int
	games    map[string]int
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		ratings: make(map[string]int),
		wins:    make(map[string]int),
		losses:  make(map[string]int),
		games:   make(map[string]int),
	}
}

var _ Service = (*MemoryService)(nil)

func (s *MemoryService) record(playerID string, newRating int, score Score) {
	s.ratings[playerID] = newRating
	s.games[playerID]++
	switch score {
	case ScoreWin:
		s.wins[playerID]++
	case ScoreLoss:
		s.losses[playerID]++
	}
}

func (s *MemoryService) CommitHumanVsHuman(ctx context.Context, m HumanMatch) (HumanMatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var aScore, bScore Score
	if m.IsDraw {
		aScore, bScore = ScoreDraw, ScoreDraw
	} else if m.WinnerID == m.PlayerAID {
		aScore, bScore = ScoreWin, ScoreLoss
	} else {
		aScore, bScore = ScoreLoss, ScoreWin
	}

	aNew := NewRating(m.PlayerARatingAtStart, m.PlayerBRatingAtStart, KBase, aScore)
	bNew := NewRating(m.PlayerBRatingAtStart, m.PlayerARatingAtStart, KBase, bScore)

	s.record(m.PlayerAID, aNew, aScore)
	s.record(m.PlayerBID, bNew, bScore)

	return HumanMatchResult{
		PlayerADelta:  aNew - m.PlayerARatingAtStart,
		PlayerANewElo: aNew,
		PlayerBDelta:  bNew - m.PlayerBRatingAtStart,
		PlayerBNewElo: bNew,
	}, nil
}

func (s *MemoryService) CommitHumanVsSynthetic(ctx context.Context, m BotMatch) (BotMatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.record(m.HumanID, humanNew, humanScore)

	return BotMatchResult{HumanDelta: humanNew - m.HumanRatingAtStart, HumanNewElo: humanNew}, nil
}

// RatingOf returns a player's current in-memory rating, or Default if unseen.
func (s *MemoryService) RatingOf(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.ratings[playerID]; ok {
		return r
	}
	return Default
}
