package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/crestle/internal/game"
)

// ErrBadToken covers every token that cannot be opened.
var ErrBadToken = errors.New("invalid snapshot token")

const tokenIssuer = "crestle"

type snapshotClaims struct {
	Snapshot game.Snapshot `json:"snap"`
	jwt.RegisteredClaims
}

// Sealer signs snapshots into HS256 tokens a client can hold and hand back.
type Sealer struct {
	secret []byte
	ttl    time.Duration
}

// NewSealer returns a sealer. ttl ≤ 0 defaults to 48h.
func NewSealer(secret []byte, ttl time.Duration) *Sealer {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Sealer{secret: secret, ttl: ttl}
}

// Seal signs snap for playerID.
func (s *Sealer) Seal(playerID string, snap game.Snapshot) (string, error) {
	now := time.Now()
	claims := snapshotClaims{
		Snapshot: snap,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign snapshot: %w", err)
	}
	return signed, nil
}

// Open verifies a token and returns its snapshot and player id.
func (s *Sealer) Open(token string) (game.Snapshot, string, error) {
	var claims snapshotClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return game.Snapshot{}, "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return claims.Snapshot, claims.Subject, nil
}
