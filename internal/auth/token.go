package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/identity-service/internal/domain"
)

// Verification failures. An expired token that carried a valid signature is
// reported distinctly from a malformed or forged one.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenManager issues and verifies the signed identity tokens. It holds the
// single server secret and the configured access/refresh lifetimes; it does no
// I/O.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Claims describes the token payload: subject (username), role, iat and exp.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the subject with the given lifetime.
func (tm *TokenManager) Issue(subject string, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueAccessToken issues a short-lived token for one request window.
func (tm *TokenManager) IssueAccessToken(subject string, role domain.Role) (string, time.Time, error) {
	return tm.Issue(subject, role, tm.accessTTL)
}

// IssueRefreshToken issues a long-lived token used only to mint new access tokens.
func (tm *TokenManager) IssueRefreshToken(subject string, role domain.Role) (string, time.Time, error) {
	return tm.Issue(subject, role, tm.refreshTTL)
}

// Verify checks the signature and expiry and returns the decoded claims.
// The jwt library verifies the HMAC (constant-time) before validating claim
// times, so ErrTokenExpired implies the signature already checked out.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExtractClaim decodes a single claim from the payload without re-verifying
// the signature. Only call sites that verified the same token in the same
// operation may use it.
func (tm *TokenManager) ExtractClaim(tokenStr, name string) (any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	value, ok := claims[name]
	if !ok {
		return nil, fmt.Errorf("claim %q not present", name)
	}
	return value, nil
}
