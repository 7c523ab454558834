package gateway

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the payload of the opaque bearer token issued out-of-band and
// presented at the handshake per §4.H. The gateway only verifies it; token
// issuance is someone else's concern.
type claims struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Elo      int    `json:"elo"`
	jwt.RegisteredClaims
}

// TokenVerifier validates the bearer token on the handshake request. A nil
// secret lets every connection through unauthenticated, matching local dev.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(tokenString string) (playerID, username string, elo int, err error) {
	if len(v.secret) == 0 {
		return "", "", 0, ErrNotAuthenticated
	}
	if tokenString == "" {
		return "", "", 0, ErrNotAuthenticated
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("gateway: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", 0, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.PlayerID == "" {
		return "", "", 0, ErrInvalidToken
	}
	return c.PlayerID, c.Username, c.Elo, nil
}

// IssueToken is provided for local/dev tooling and tests; the real issuer in
// production lives outside this service (§4.H).
func (v *TokenVerifier) IssueToken(playerID, username string, elo int, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		PlayerID: playerID,
		Username: username,
		Elo:      elo,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
