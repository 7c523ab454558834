package bot

import (
	"math/rand"
	"testing"

	"speedwordle/internal/dictionary"
)

func TestSelectForRating(t *testing.T) {
	tests := []struct {
		rating       int
		wantDiff     Difficulty
		wantBotScore int
	}{
		{500, Easy, 800},
		{899, Easy, 800},
		{900, Medium, 1100},
		{1199, Medium, 1100},
		{1200, Hard, 1400},
		{1350, Hard, 1400},
		{1499, Hard, 1400},
		{1500, Impossible, 1800},
		{2000, Impossible, 1800},
	}

	for _, tt := range tests {
		diff, rating := SelectForRating(tt.rating)
		if diff != tt.wantDiff || rating != tt.wantBotScore {
			t.Errorf("SelectForRating(%d) = (%v, %d), want (%v, %d)", tt.rating, diff, rating, tt.wantDiff, tt.wantBotScore)
		}
	}
}

func TestFirstGuessIsOpenerForNonEasy(t *testing.T) {
	dict := dictionary.New()
	rng := rand.New(rand.NewSource(1))

	for _, diff := range []Difficulty{Medium, Hard, Impossible} {
		state := NewState(diff, dict)
		guess := NextGuess(state, dict, rng)

		found := false
		for _, o := range openers {
			if o == guess {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("difficulty %v: first guess %q not in opener set %v", diff, guess, openers)
		}
	}
}

func TestFirstGuessEasyIsCommonWord(t *testing.T) {
	dict := dictionary.New()
	rng := rand.New(rand.NewSource(1))

	state := NewState(Easy, dict)
	guess := NextGuess(state, dict, rng)

	found := false
	for _, w := range dict.CommonWords() {
		if w == guess {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("easy first guess %q not in common words", guess)
	}
}

func TestEntropyOfExactMatchIsZero(t *testing.T) {
	remaining := []string{"CRANE"}
	if h := Entropy("CRANE", remaining); h != 0 {
		t.Errorf("expected zero entropy for singleton set, got %v", h)
	}
}

func TestEntropyIncreasesWithSplitDiversity(t *testing.T) {
	remaining := []string{"CRANE", "CRATE", "CRAZE", "CRASH"}
	low := Entropy("AAAAA", remaining)
	high := Entropy("CRANE", remaining)
	if high <= low {
		t.Errorf("expected a differentiating guess to have higher entropy: high=%v low=%v", high, low)
	}
}

func TestAdvanceNarrowsRemainingAnswers(t *testing.T) {
	dict := dictionary.New()
	target := "CRATE"
	state := NewState(Hard, dict)

	before := len(state.RemainingAnswers)
	pattern := dictionary.Evaluate("CRANE", target)
	state = Advance(state, "CRANE", pattern)

	if len(state.RemainingAnswers) >= before {
		t.Errorf("expected remaining answers to shrink after a constraint, before=%d after=%d", before, len(state.RemainingAnswers))
	}
	found := false
	for _, w := range state.RemainingAnswers {
		if w == target {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("target %q should remain a candidate consistent with its own guess pattern", target)
	}
}

func TestEveryProducedGuessIsValid(t *testing.T) {
	dict := dictionary.New()
	rng := rand.New(rand.NewSource(42))
	target := "CRATE"

	for _, diff := range []Difficulty{Easy, Medium, Hard, Impossible} {
		state := NewState(diff, dict)
		for i := 0; i < 6; i++ {
			guess := NextGuess(state, dict, rng)
			if !dict.IsValidGuess(guess) {
				t.Fatalf("difficulty %v guess %d produced invalid word %q", diff, i+1, guess)
			}
			pattern := dictionary.Evaluate(guess, target)
			state = Advance(state, guess, pattern)
			if pattern.AllGreen() {
				break
			}
		}
	}
}

func TestPaceWithinWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, diff := range []Difficulty{Easy, Medium, Hard, Impossible} {
		b := diff.Behavior()
		for i := 0; i < 20; i++ {
			d := Pace(diff, rng)
			if d < b.PaceMin || d > b.PaceMax {
				t.Errorf("difficulty %v: pace %v outside [%v, %v]", diff, d, b.PaceMin, b.PaceMax)
			}
		}
	}
}
