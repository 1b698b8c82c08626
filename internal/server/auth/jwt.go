// Package auth holds the credential primitives: signed bearer tokens for the
// access/refresh pair and salted password hashing.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims is the payload of access and refresh tokens:
// {"uid": ..., "rds": ..., "exp": ..., "iat": ...}.
type BearerClaims struct {
	UserID int64 `json:"uid"`
	Seed   int   `json:"rds"`
	jwt.RegisteredClaims
}

// BearerCodec signs and checks bearer tokens with an HMAC-SHA-512 secret.
type BearerCodec struct {
	secret []byte
	now    func() time.Time
}

func NewBearerCodec(secretKey string) *BearerCodec {
	return &BearerCodec{secret: []byte(secretKey), now: time.Now}
}

// Encode returns a signed token for the given owner and pairing seed, valid
// from issuedAt until expiresAt.
func (c *BearerCodec) Encode(userID int64, seed int, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, BearerClaims{
		UserID: userID,
		Seed:   seed,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}
	return s, nil
}

// Decode checks the signature, algorithm and exp/iat claims before trusting
// the payload. Every failure matches common.ErrInvalidToken.
func (c *BearerCodec) Decode(tokenString string) (*BearerClaims, error) {
	claims := &BearerClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
