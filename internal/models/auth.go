package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the bearer token payload accepted by the API. Tokens are
// issued by the school's identity service; the user id travels in "sub".
type JWTClaims struct {
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims

	// UserID mirrors Subject once the token has been validated.
	UserID string `json:"-"`
}
