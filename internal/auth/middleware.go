package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the request-scoped authenticated caller. It is bound at the
// start of a request and discarded with it; it must never be stored anywhere
// that outlives the request.
type Principal struct {
	Username string
	Role     domain.Role
	Account  *domain.Account
}

// AuthMiddleware validates bearer tokens and binds the caller identity. It
// runs exactly once per request, ahead of policy evaluation and handlers.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewAuthMiddleware constructs the middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle authenticates the request when a bearer token is present. A request
// without an Authorization header proceeds with no identity bound; the policy
// table decides whether that is acceptable for the route. A present but
// unverifiable token is always rejected, with expiry and invalidity surfaced
// as distinct codes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Next()
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewTokenExpired()
		}
		return apperrors.NewTokenInvalid()
	}

	// Reload the account so a renamed or deleted identity is caught even
	// though the token itself still verifies.
	account, err := m.accounts.GetByUsername(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthenticated("account no longer exists")
		}
		return apperrors.MapError(err)
	}

	BindPrincipal(c, &Principal{
		Username: account.Username,
		Role:     account.Role,
		Account:  account,
	})
	return c.Next()
}

// BindPrincipal attaches the caller identity to the current request.
func BindPrincipal(c *fiber.Ctx, principal *Principal) {
	c.Locals(principalKey, principal)
}

// PrincipalFromContext retrieves the authenticated caller, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
