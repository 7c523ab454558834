// Package bot implements the information-theoretic synthetic opponent: a
// Shannon-entropy guess selector tuned by a per-match difficulty, driven by
// pure state transitions so the match engine (not this package) owns the
// lifetime of any SyntheticState value.
package bot

import (
	"math"
	"math/rand"
	"sort"

	"speedwordle/internal/dictionary"
)

// openers is the pre-computed set of first-guess words used by every
// non-easy difficulty when no constraints exist yet.
var openers = []string{"SALET", "CRANE", "SLATE", "TRACE", "CRATE"}

// Constraint is one past (guess, resulting pattern) pair.
type Constraint struct {
	Guess   string
	Pattern dictionary.Pattern
}

// SyntheticState is the bot's belief state for one active match. It is a
// plain value: every transition in this package returns a new SyntheticState
// rather than mutating the receiver, so ownership of the value stays with
// whichever match actor calls NextGuess.
type SyntheticState struct {
	Difficulty       Difficulty
	RemainingAnswers []string
	Constraints      []Constraint
	GuessCount       int
}

// NewState seeds a SyntheticState for a fresh match against dict's full
// answer list.
func NewState(difficulty Difficulty, dict *dictionary.Dictionary) SyntheticState {
	remaining := make([]string, len(dict.Answers()))
	copy(remaining, dict.Answers())
	return SyntheticState{
		Difficulty:       difficulty,
		RemainingAnswers: remaining,
		GuessCount:       0,
	}
}

func consistent(answer string, constraints []Constraint) bool {
	for _, c := range constraints {
		if dictionary.Evaluate(c.Guess, answer) != c.Pattern {
			return false
		}
	}
	return true
}

func filterConsistent(candidates []string, constraints []Constraint) []string {
	out := make([]string, 0, len(candidates))
	for _, w := range candidates {
		if consistent(w, constraints) {
			out = append(out, w)
		}
	}
	return out
}

// Entropy computes the expected information gain of guessing g against the
// candidate set remaining: H(g) = -Σ (|bucket|/|R|) log2(|bucket|/|R|),
// partitioning remaining by the pattern g would produce against each member.
func Entropy(guess string, remaining []string) float64 {
	if len(remaining) == 0 {
		return 0
	}
	buckets := make(map[dictionary.Pattern]int)
	for _, answer := range remaining {
		buckets[dictionary.Evaluate(guess, answer)]++
	}
	total := float64(len(remaining))
	var h float64
	for _, count := range buckets {
		p := float64(count) / total
		h -= p * math.Log2(p)
	}
	return h
}

func intersectCommon(words, common []string) []string {
	set := make(map[string]struct{}, len(common))
	for _, w := range common {
		set[w] = struct{}{}
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := set[w]; ok {
			out = append(out, w)
		}
	}
	return out
}

func distinctLetterCount(word string) int {
	seen := make(map[byte]struct{}, len(word))
	for i := 0; i < len(word); i++ {
		seen[word[i]] = struct{}{}
	}
	return len(seen)
}

// NextGuess implements the five-step guess-selection procedure of §4.E for
// the Nth guess of the match (state.GuessCount+1) and returns the chosen word
// only; state is not modified. Once the caller learns the resulting pattern it
// advances the state with Advance.
func NextGuess(state SyntheticState, dict *dictionary.Dictionary, rng *rand.Rand) string {
	n := state.GuessCount + 1
	behavior := state.Difficulty.Behavior()

	// Step 1: fixed opener.
	if n == 1 && len(state.Constraints) == 0 {
		if state.Difficulty == Easy {
			common := dict.CommonWords()
			return common[rng.Intn(len(common))]
		}
		return openers[rng.Intn(len(openers))]
	}

	// Step 2: common-word filter with fallback.
	candidates := state.RemainingAnswers
	if behavior.CommonWordFilter {
		filtered := intersectCommon(candidates, dict.CommonWords())
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	// Step 3: near-certain endgame.
	if n >= behavior.EarliestSolve {
		if len(candidates) == 1 {
			return finalizeGuess(candidates[0], state, dict, rng, n)
		}
		if len(candidates) == 2 {
			return finalizeGuess(candidates[rng.Intn(2)], state, dict, rng, n)
		}
	}

	// Step 4: entropy-ranked pool.
	pool := buildPool(candidates, dict, rng)
	chosen := rankAndPick(pool, state.RemainingAnswers, behavior, dict, rng)

	return finalizeGuess(chosen, state, dict, rng, n)
}

func buildPool(candidates []string, dict *dictionary.Dictionary, rng *rand.Rand) []string {
	pool := make([]string, len(candidates))
	copy(pool, candidates)

	valid := dict.ValidGuesses()
	sampleSize := 500
	if sampleSize > len(valid) {
		sampleSize = len(valid)
	}
	perm := rng.Perm(len(valid))[:sampleSize]
	for _, idx := range perm {
		pool = append(pool, valid[idx])
	}
	return dedupe(pool)
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

type scoredWord struct {
	word  string
	score float64
}

func rankAndPick(pool, remaining []string, behavior Behavior, dict *dictionary.Dictionary, rng *rand.Rand) string {
	if behavior.TopN == 0 {
		// "greedy random": pick uniformly among the candidate pool without
		// ranking by entropy.
		return pool[rng.Intn(len(pool))]
	}

	scored := make([]scoredWord, 0, len(pool))
	for _, w := range pool {
		h := Entropy(w, remaining) + behavior.Noise*(rng.Float64()-0.5)
		scored = append(scored, scoredWord{word: w, score: h})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	topN := behavior.TopN
	if topN > len(scored) {
		topN = len(scored)
	}
	top := scored[:topN]

	if behavior.CommonWordFilter {
		common := intersectCommonScored(top, dict.CommonWords())
		if len(common) > 0 {
			top = common
		}
	}

	if len(top) == 1 {
		return top[0].word
	}
	return top[rng.Intn(len(top))].word
}

func intersectCommonScored(words []scoredWord, common []string) []scoredWord {
	set := make(map[string]struct{}, len(common))
	for _, w := range common {
		set[w] = struct{}{}
	}
	out := make([]scoredWord, 0, len(words))
	for _, w := range words {
		if _, ok := set[w.word]; ok {
			out = append(out, w)
		}
	}
	return out
}

// finalizeGuess applies step 5's waste-word substitution.
func finalizeGuess(guess string, state SyntheticState, dict *dictionary.Dictionary, rng *rand.Rand, n int) string {
	behavior := state.Difficulty.Behavior()

	isEarly := n < behavior.EarliestSolve && contains(state.RemainingAnswers, guess)
	roll := behavior.WasteChance > 0 && rng.Float64() < behavior.WasteChance

	if !isEarly && !roll {
		return guess
	}

	waste := pickWasteWord(state, dict, rng)
	if waste == "" {
		return guess
	}
	return waste
}

func pickWasteWord(state SyntheticState, dict *dictionary.Dictionary, rng *rand.Rand) string {
	valid := filterConsistent(dict.ValidGuesses(), state.Constraints)
	if len(valid) == 0 {
		return ""
	}
	sort.Slice(valid, func(i, j int) bool {
		return distinctLetterCount(valid[i]) > distinctLetterCount(valid[j])
	})
	top := valid
	if len(top) > 50 {
		top = top[:50]
	}
	return top[rng.Intn(len(top))]
}

func contains(words []string, target string) bool {
	for _, w := range words {
		if w == target {
			return true
		}
	}
	return false
}

// Advance folds the observed (guess, pattern) pair into state, returning the
// updated value with remainingAnswers filtered through the new constraint.
func Advance(state SyntheticState, guess string, pattern dictionary.Pattern) SyntheticState {
	constraints := append(append([]Constraint{}, state.Constraints...), Constraint{Guess: guess, Pattern: pattern})
	return SyntheticState{
		Difficulty:       state.Difficulty,
		RemainingAnswers: filterConsistent(state.RemainingAnswers, constraints),
		Constraints:      constraints,
		GuessCount:       state.GuessCount + 1,
	}
}
