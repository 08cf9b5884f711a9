package model

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims of a session token. The subject carries the
// numeric user id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID parses the subject.
func (c *TokenClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
