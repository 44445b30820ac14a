package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionRequest opens a session for a directory account.
type SessionRequest struct {
	UserKey string `json:"userKey" validate:"required"`
}

// SessionResponse returns the issued token and the resolved identity.
type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        Identity  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID        string        `json:"user_id"`
	Role          UserRole      `json:"role"`
	Email         string        `json:"email"`
	FullName      string        `json:"full_name"`
	AssignedClass *CollegeClass `json:"assigned_class,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the acting user described by the claims.
func (c *JWTClaims) Identity() Identity {
	if c == nil {
		return Identity{}
	}
	return Identity{
		ID:            c.UserID,
		Name:          c.FullName,
		Email:         c.Email,
		Role:          c.Role,
		AssignedClass: c.AssignedClass,
	}
}
