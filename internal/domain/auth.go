package domain

import "time"

// TokenKind differentiates access and refresh tokens. The two are structurally
// identical; only their lifetimes differ.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// TokenPair bundles the credentials returned by login and register.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
