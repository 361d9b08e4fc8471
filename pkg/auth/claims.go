package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the reviewer identity embedded in a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by reviewers.
type AccessTokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}
