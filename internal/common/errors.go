// Package common defines shared helpers and sentinel errors used across
// MindNote packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Token errors (malformed or expired session token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
