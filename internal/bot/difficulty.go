package bot

import "time"

// Difficulty tunes the guess-selection and pacing behavior of a synthetic
// opponent.
type Difficulty string

const (
	Easy       Difficulty = "easy"
	Medium     Difficulty = "medium"
	Hard       Difficulty = "hard"
	Impossible Difficulty = "impossible"
)

// Behavior is the per-difficulty tuning table of §4.E.
type Behavior struct {
	TopN             int
	CommonWordFilter bool
	EarliestSolve    int
	PaceMin          time.Duration
	PaceMax          time.Duration
	Noise            float64
	WasteChance      float64
}

var behaviors = map[Difficulty]Behavior{
	Easy: {
		TopN:             0, // greedy random: uniform pick from the whole pool (filtered candidates plus sampled valid guesses), no entropy ranking
		CommonWordFilter: true,
		EarliestSolve:    4,
		PaceMin:          30 * time.Second,
		PaceMax:          35 * time.Second,
		Noise:            0.20,
		WasteChance:      0.20,
	},
	Medium: {
		TopN:             20,
		CommonWordFilter: true,
		EarliestSolve:    3,
		PaceMin:          22 * time.Second,
		PaceMax:          30 * time.Second,
		Noise:            0.10,
		WasteChance:      0.10,
	},
	Hard: {
		TopN:             5,
		CommonWordFilter: false,
		EarliestSolve:    2,
		PaceMin:          18 * time.Second,
		PaceMax:          22 * time.Second,
		Noise:            0.05,
		WasteChance:      0,
	},
	Impossible: {
		TopN:             1,
		CommonWordFilter: false,
		EarliestSolve:    1,
		PaceMin:          10 * time.Second,
		PaceMax:          20 * time.Second,
		Noise:            0,
		WasteChance:      0,
	},
}

func (d Difficulty) Behavior() Behavior {
	return behaviors[d]
}

// RatingBracket is a (ceiling, difficulty, rating) row of §4.D's table.
// Ceiling is exclusive except for the final, unbounded bracket.
type RatingBracket struct {
	Ceiling    int
	Difficulty Difficulty
	Rating     int
}

var ratingBrackets = []RatingBracket{
	{Ceiling: 900, Difficulty: Easy, Rating: 800},
	{Ceiling: 1200, Difficulty: Medium, Rating: 1100},
	{Ceiling: 1500, Difficulty: Hard, Rating: 1400},
	{Ceiling: 0, Difficulty: Impossible, Rating: 1800}, // unbounded
}

// SelectForRating returns the difficulty and bot rating a BOT_SPAWN should
// use for a human enqueued at the given rating, per §4.D's table.
func SelectForRating(rating int) (Difficulty, int) {
	for _, b := range ratingBrackets {
		if b.Ceiling == 0 || rating < b.Ceiling {
			return b.Difficulty, b.Rating
		}
	}
	last := ratingBrackets[len(ratingBrackets)-1]
	return last.Difficulty, last.Rating
}
