package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts []*domain.Account
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now()
	r.accounts = append(r.accounts, account)
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id })
}

func (r *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Username == username })
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *fakeAccountRepo) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Account{}, r.accounts...), nil
}

func (r *fakeAccountRepo) remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.accounts[:0]
	for _, account := range r.accounts {
		if account.Username != username {
			kept = append(kept, account)
		}
	}
	r.accounts = kept
}

func (r *fakeAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

func (r *fakeAccountRepo) find(match func(*domain.Account) bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if match(account) {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "service-test-secret-32-bytes-ok!",
			AccessTokenTTLMinutes: 15,
			RefreshTokenTTLHours:  24,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

func newTestService(repo *fakeAccountRepo, dispatcher events.Dispatcher) *AuthService {
	return NewAuthService(testConfig(), AuthDependencies{
		AccountRepo: repo,
		Dispatcher:  dispatcher,
	})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func TestRegister_CreatesAccountAndTokenPair(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	account, pair, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, domain.RoleUser, account.Role)
	assert.NotEqual(t, "s3cret-pass", account.PasswordHash)

	claims, err := svc.TokenManager().Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)

	refreshClaims, err := svc.TokenManager().Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", refreshClaims.Subject)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "alice", "other@example.com", "s3cret-pass")
	assertCode(t, err, apperrors.CodeDuplicateResource)
	assert.Equal(t, 1, repo.count())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "bob", "alice@example.com", "s3cret-pass")
	assertCode(t, err, apperrors.CodeDuplicateResource)
	assert.Equal(t, 1, repo.count())
}

func TestLogin_Success(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "correct-pass")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "correct-pass")
	require.NoError(t, err)

	claims, err := svc.TokenManager().Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestLogin_FailureDoesNotRevealCause(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "correct-pass")
	require.NoError(t, err)

	_, wrongPassErr := svc.Login(ctx, "alice", "wrong-pass")
	assertCode(t, wrongPassErr, apperrors.CodeAuthenticationFailed)

	_, unknownUserErr := svc.Login(ctx, "nobody", "whatever")
	assertCode(t, unknownUserErr, apperrors.CodeAuthenticationFailed)

	// Identical message for both failure paths.
	assert.Equal(t, wrongPassErr.Error(), unknownUserErr.Error())
}

func TestRefresh_IssuesNewAccessTokenWithoutRotation(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "alice", "alice@example.com", "correct-pass")
	require.NoError(t, err)

	token, expiresAt, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := svc.TokenManager().Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)

	// The refresh token is not rotated: it still verifies and can be used
	// again until its own expiry.
	_, err = svc.TokenManager().Verify(pair.RefreshToken)
	require.NoError(t, err)
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "correct-pass")
	require.NoError(t, err)

	expired, _, err := svc.TokenManager().Issue("alice", domain.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, expired)
	assertCode(t, err, apperrors.CodeTokenExpired)
}

func TestRefresh_InvalidToken(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)

	_, _, err := svc.Refresh(context.Background(), "definitely.not.valid")
	assertCode(t, err, apperrors.CodeTokenInvalid)
}

func TestRefresh_DeletedAccount(t *testing.T) {
	repo := &fakeAccountRepo{}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "alice", "alice@example.com", "correct-pass")
	require.NoError(t, err)

	repo.remove("alice")

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assertCode(t, err, apperrors.CodeAuthenticationFailed)
}

func TestAuditEventsPublished(t *testing.T) {
	repo := &fakeAccountRepo{}
	dispatcher := events.NewInMemoryDispatcher()

	var mu sync.Mutex
	var seen []events.EventType
	record := func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.Type)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventTokenRefreshed,
	} {
		dispatcher.Subscribe(eventType, record)
	}

	svc := newTestService(repo, dispatcher)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "alice", "alice@example.com", "correct-pass")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice", "correct-pass")
	require.NoError(t, err)
	_, _ = svc.Login(ctx, "alice", "wrong-pass")
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.EventType{
		events.EventAccountRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventTokenRefreshed,
	}, seen)
}
