// Package dictionary loads the immutable word lists and implements the
// five-letter color evaluation rule that every other component builds on.
package dictionary

import (
	"crypto/rand"
	"embed"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

//go:embed answers.json
var answersFile embed.FS

//go:embed valid_guesses.json
var validGuessesFile embed.FS

//go:embed common_words.json
var commonWordsFile embed.FS

const WordLength = 5

// Color is the three-valued outcome of a single letter comparison.
type Color int

const (
	Grey Color = iota
	Yellow
	Green
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	default:
		return "grey"
	}
}

// MarshalJSON renders a Color as its wire literal ("green"/"yellow"/"grey")
// rather than its underlying int, since Pattern values cross the gateway
// boundary directly as event payload fields.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "green":
		*c = Green
	case "yellow":
		*c = Yellow
	case "grey":
		*c = Grey
	default:
		return fmt.Errorf("dictionary: invalid color literal %q", s)
	}
	return nil
}

// Pattern is the flattened five-character encoding used by the bot engine's
// constraint filter (G/Y/X per letter).
type Pattern [WordLength]Color

func (p Pattern) Encode() string {
	var b strings.Builder
	for _, c := range p {
		switch c {
		case Green:
			b.WriteByte('G')
		case Yellow:
			b.WriteByte('Y')
		default:
			b.WriteByte('X')
		}
	}
	return b.String()
}

func (p Pattern) AllGreen() bool {
	for _, c := range p {
		if c != Green {
			return false
		}
	}
	return true
}

// Dictionary is the immutable, process-wide word source. It is safe for
// concurrent use after construction; no field is ever mutated.
type Dictionary struct {
	answers      []string
	validGuesses map[string]struct{}
	commonWords  []string

	mu sync.Mutex // guards only crypto/rand reads, not the word lists
}

func loadWordList(fsys embed.FS, name string) ([]string, error) {
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("dictionary: read %s: %w", name, err)
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("dictionary: parse %s: %w", name, err)
	}
	for i, w := range words {
		words[i] = strings.ToUpper(strings.TrimSpace(w))
	}
	return words, nil
}

// New loads the embedded word lists and builds the lookup structures. It
// panics on malformed embedded data, which would indicate a build defect
// rather than a runtime condition.
func New() *Dictionary {
	answers, err := loadWordList(answersFile, "answers.json")
	if err != nil {
		panic(err)
	}
	valid, err := loadWordList(validGuessesFile, "valid_guesses.json")
	if err != nil {
		panic(err)
	}
	common, err := loadWordList(commonWordsFile, "common_words.json")
	if err != nil {
		panic(err)
	}

	validSet := make(map[string]struct{}, len(valid)+len(answers))
	for _, w := range valid {
		if len(w) == WordLength {
			validSet[w] = struct{}{}
		}
	}
	for _, w := range answers {
		if len(w) == WordLength {
			validSet[w] = struct{}{}
		}
	}

	return &Dictionary{
		answers:      answers,
		validGuesses: validSet,
		commonWords:  common,
	}
}

// IsValidGuess reports whether word (case-insensitive) is a legal guess.
func (d *Dictionary) IsValidGuess(word string) bool {
	if len(word) != WordLength {
		return false
	}
	_, ok := d.validGuesses[strings.ToUpper(word)]
	return ok
}

// RandomAnswer returns a uniformly chosen member of the answer list.
func (d *Dictionary) RandomAnswer() string {
	return d.answers[d.randIndex(len(d.answers))]
}

// Answers returns the full answer list. Callers must not mutate it.
func (d *Dictionary) Answers() []string {
	return d.answers
}

// ValidGuesses returns every legal guess word. Callers must not mutate it.
func (d *Dictionary) ValidGuesses() []string {
	out := make([]string, 0, len(d.validGuesses))
	for w := range d.validGuesses {
		out = append(out, w)
	}
	return out
}

// CommonWords returns the curated subset used by easy/medium bot behavior.
func (d *Dictionary) CommonWords() []string {
	return d.commonWords
}

func (d *Dictionary) randIndex(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(idx.Int64())
}

// Evaluate implements the two-pass GREEN-then-YELLOW/GREY rule of §4.A
// exactly: a first pass marks exact-position matches and consumes those
// target positions, a second pass marks YELLOW against the leftmost
// remaining unconsumed occurrence.
func Evaluate(guess, target string) Pattern {
	guess = strings.ToUpper(guess)
	target = strings.ToUpper(target)

	var result Pattern
	targetUsed := make([]bool, WordLength)

	for i := 0; i < WordLength; i++ {
		if i < len(guess) && i < len(target) && guess[i] == target[i] {
			result[i] = Green
			targetUsed[i] = true
		}
	}

	for i := 0; i < WordLength; i++ {
		if result[i] == Green {
			continue
		}
		found := false
		for j := 0; j < WordLength; j++ {
			if targetUsed[j] {
				continue
			}
			if i < len(guess) && j < len(target) && guess[i] == target[j] {
				targetUsed[j] = true
				found = true
				break
			}
		}
		if found {
			result[i] = Yellow
		} else {
			result[i] = Grey
		}
	}

	return result
}
