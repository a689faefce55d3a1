package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/domain"
)

const testSecret = "token-test-secret-32-bytes-long!"

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	cases := []struct {
		subject string
		role    domain.Role
	}{
		{"alice", domain.RoleUser},
		{"bob", domain.RoleAdmin},
	}

	for _, tc := range cases {
		token, expiresAt, err := tm.Issue(tc.subject, tc.role, time.Minute)
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)
		assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

		claims, err := tm.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, tc.subject, claims.Subject)
		assert.Equal(t, tc.role, claims.Role)
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
	}
}

func TestVerify_Expired(t *testing.T) {
	tm := newTestTokenManager()

	// Correctly signed but already past exp.
	token, _, err := tm.Issue("alice", domain.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_TamperedSignature(t *testing.T) {
	tm := newTestTokenManager()

	token, _, err := tm.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[2] = flipFirstChar(parts[2])
	tampered := strings.Join(parts, ".")

	_, err = tm.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_TamperedPayload(t *testing.T) {
	tm := newTestTokenManager()

	token, _, err := tm.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = flipFirstChar(parts[1])

	_, err = tm.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_WrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("a-different-secret-entirely-here", 15*time.Minute, 24*time.Hour)

	token, _, err := tm.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	tm := newTestTokenManager()

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d", "not.a.token"} {
		_, err := tm.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestIssueAccessAndRefreshTTLs(t *testing.T) {
	tm := newTestTokenManager()

	_, accessExp, err := tm.IssueAccessToken("alice", domain.RoleUser)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), accessExp, 2*time.Second)

	_, refreshExp, err := tm.IssueRefreshToken("alice", domain.RoleUser)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), refreshExp, 2*time.Second)
}

func TestExtractClaim(t *testing.T) {
	tm := newTestTokenManager()

	token, _, err := tm.Issue("alice", domain.RoleAdmin, time.Minute)
	require.NoError(t, err)

	sub, err := tm.ExtractClaim(token, "sub")
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	role, err := tm.ExtractClaim(token, "role")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", role)

	_, err = tm.ExtractClaim(token, "missing")
	require.Error(t, err)

	_, err = tm.ExtractClaim("garbage", "sub")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func flipFirstChar(segment string) string {
	b := []byte(segment)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
