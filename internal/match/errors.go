package match

import "errors"

var (
	ErrInvalidGuess       = errors.New("INVALID_GUESS")
	ErrNotYourMatch       = errors.New("NOT_YOUR_MATCH")
	ErrMatchNotActive     = errors.New("MATCH_NOT_ACTIVE")
	ErrNoGuessesRemaining = errors.New("NO_GUESSES_REMAINING")
	ErrMatchNotFound      = errors.New("MATCH_NOT_FOUND")
	ErrPersistence        = errors.New("PERSISTENCE_ERROR")
	ErrMatchExpired       = errors.New("MATCH_EXPIRED")
)
