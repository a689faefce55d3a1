package auth

import (
	"context"

	"github.com/spec-kit/identity-service/internal/repository"
)

// OwnershipResolver answers whether a caller owns a specific resource.
type OwnershipResolver struct {
	accounts repository.AccountRepository
}

// NewOwnershipResolver constructs a resolver backed by the credential store.
func NewOwnershipResolver(accounts repository.AccountRepository) *OwnershipResolver {
	return &OwnershipResolver{accounts: accounts}
}

// IsOwner reports whether the account identified by resourceID belongs to
// principalUsername. A missing resource or failed lookup is never owned;
// non-existence is not evidence of ownership.
func (r *OwnershipResolver) IsOwner(ctx context.Context, resourceID, principalUsername string) bool {
	if resourceID == "" || principalUsername == "" {
		return false
	}
	account, err := r.accounts.GetByID(ctx, resourceID)
	if err != nil {
		return false
	}
	return account.Username == principalUsername
}
