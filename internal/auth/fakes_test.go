package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/identity-service/internal/domain"
)

// fakeAccountRepo is an in-memory AccountRepository for tests. Missing rows
// surface as pgx.ErrNoRows, matching the Postgres-backed implementation.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts []*domain.Account
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{}
	for _, account := range accounts {
		if account.ID == "" {
			account.ID = uuid.NewString()
		}
		repo.accounts = append(repo.accounts, account)
	}
	return repo
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
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
