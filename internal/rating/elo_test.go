package rating

import (
	"math"
	"testing"
)

func TestExpectedEqualRatings(t *testing.T) {
	e := Expected(1200, 1200)
	if math.Abs(e-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 for equal ratings, got %v", e)
	}
}

func TestExpectedHigherRatingFavored(t *testing.T) {
	e := Expected(1600, 1200)
	if e <= 0.5 {
		t.Fatalf("expected favorite to have expectation > 0.5, got %v", e)
	}
}

func TestExpectedSymmetry(t *testing.T) {
	a := Expected(1400, 1100)
	b := Expected(1100, 1400)
	if math.Abs(a+b-1.0) > 1e-9 {
		t.Fatalf("expected scores should sum to 1, got %v + %v", a, b)
	}
}

func TestNewRatingWinIncreasesRating(t *testing.T) {
	r := NewRating(1200, 1200, KBase, ScoreWin)
	if r <= 1200 {
		t.Fatalf("expected rating to increase after a win, got %d", r)
	}
}

func TestNewRatingLossDecreasesRating(t *testing.T) {
	r := NewRating(1200, 1200, KBase, ScoreLoss)
	if r >= 1200 {
		t.Fatalf("expected rating to decrease after a loss, got %d", r)
	}
}

func TestNewRatingDrawNearUnchangedForEqualRatings(t *testing.T) {
	r := NewRating(1200, 1200, KBase, ScoreDraw)
	if r != 1200 {
		t.Fatalf("expected a draw between equally rated players to leave rating unchanged, got %d", r)
	}
}

func TestNewRatingClampsToFloor(t *testing.T) {
	r := NewRating(Floor, 2400, KBase, ScoreLoss)
	if r != Floor {
		t.Fatalf("expected rating to clamp to floor %d, got %d", Floor, r)
	}
}

func TestNewRatingHalvedKMovesLess(t *testing.T) {
	full := NewRating(1200, 1200, KBase, ScoreWin)
	half := NewRating(1200, 1200, KHalved, ScoreWin)
	if half-1200 >= full-1200 {
		t.Fatalf("expected halved K to move rating less than full K: full=%d half=%d", full, half)
	}
}
