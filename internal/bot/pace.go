package bot

import (
	"math/rand"
	"time"
)

// Pace samples a human-like thinking delay from the difficulty's pacing
// window. The match engine drives the returned duration with a
// cancellable time.Timer so a match that terminates mid-delay never fires a
// stray guess.
func Pace(difficulty Difficulty, rng *rand.Rand) time.Duration {
	b := difficulty.Behavior()
	if b.PaceMax <= b.PaceMin {
		return b.PaceMin
	}
	span := b.PaceMax - b.PaceMin
	return b.PaceMin + time.Duration(rng.Int63n(int64(span)))
}
