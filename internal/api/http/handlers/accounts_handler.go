package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AccountsHandler exposes the protected account endpoints. Authorization is
// enforced by the policy table before these handlers run.
type AccountsHandler struct {
	accounts repository.AccountRepository
}

// NewAccountsHandler constructs the handler.
func NewAccountsHandler(accounts repository.AccountRepository) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accounts.List(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.NewAccountResponses(accounts))
}

// Get handles GET /api/accounts/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	account, err := h.accounts.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account")
		}
		return apperrors.MapError(err)
	}
	return c.JSON(dto.NewAccountResponse(account))
}

// Me handles GET /api/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return c.JSON(dto.NewAccountResponse(principal.Account))
}
