package models

import (
	"fmt"
	"time"
)

// TokenCategory tells activation, access and refresh tokens apart.
type TokenCategory int16

const (
	TokenActivation TokenCategory = iota
	TokenAccess
	TokenRefresh
)

func (c TokenCategory) String() string {
	switch c {
	case TokenActivation:
		return "activation"
	case TokenAccess:
		return "access"
	case TokenRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("category(%d)", int16(c))
	}
}

// IsBearer reports whether tokens of this category are signed, self-describing
// bearer tokens.
func (c TokenCategory) IsBearer() bool {
	return c == TokenAccess || c == TokenRefresh
}

// Token is an issued credential. It is valid in [CreateOn, ExpiryOn).
// Access and refresh tokens minted together share OwnerID and RandomSeed.
type Token struct {
	ID            int64
	Category      TokenCategory
	OwnerID       int64
	Token         string
	CreateOn      time.Time
	ExpiryOn      time.Time
	FirstAccessOn *time.Time
	LastAccessOn  *time.Time
	AccessCount   int
	RandomSeed    int
}

// LiveAt reports whether now falls inside the token's lifetime.
func (t *Token) LiveAt(now time.Time) bool {
	return !t.CreateOn.After(now) && now.Before(t.ExpiryOn)
}
