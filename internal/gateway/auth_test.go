package gateway

import (
	"testing"
	"time"
)

func TestTokenVerifierIssueAndVerifyRoundTrip(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	token, err := v.IssueToken("player-42", "Eve", 1400, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	playerID, username, elo, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if playerID != "player-42" || username != "Eve" || elo != 1400 {
		t.Errorf("Verify() = (%q, %q, %d), want (player-42, Eve, 1400)", playerID, username, elo)
	}
}

func TestTokenVerifierRejectsExpiredToken(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	token, err := v.IssueToken("player-1", "Alice", 1000, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, _, _, err := v.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestTokenVerifierRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenVerifier("secret-a")
	verifier := NewTokenVerifier("secret-b")

	token, err := issuer.IssueToken("player-1", "Alice", 1000, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, _, _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestTokenVerifierRejectsEmptyToken(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	if _, _, _, err := v.Verify(""); err != ErrNotAuthenticated {
		t.Errorf("Verify(\"\") error = %v, want %v", err, ErrNotAuthenticated)
	}
}

func TestTokenVerifierNoSecretRejectsEverything(t *testing.T) {
	v := NewTokenVerifier("")

	if _, _, _, err := v.Verify("anything"); err != ErrNotAuthenticated {
		t.Errorf("Verify() error = %v, want %v", err, ErrNotAuthenticated)
	}
}

func TestTokenVerifierRejectsMalformedToken(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	if _, _, _, err := v.Verify("not-a-jwt"); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want %v", err, ErrInvalidToken)
	}
}
