package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/model"
)

// ListAccounts returns the caller's accounts.
func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	items, err := h.store.ListAccounts(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	if items == nil {
		items = []model.Account{}
	}
	return c.JSON(fiber.Map{"items": items})
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// CreateAccount adds an account for the caller.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if len(req.Currency) != 3 {
		return fiber.NewError(fiber.StatusBadRequest, "currency must be a 3-letter code")
	}
	a := &model.Account{UserID: userID(c), Name: req.Name, Currency: req.Currency}
	if err := h.store.CreateAccount(c.UserContext(), a); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// ListCategories returns the caller's categories, seeding the defaults for
// a user who has none.
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if _, err := categories.Seed(ctx, h.store, userID(c)); err != nil {
		return err
	}
	items, err := h.store.ListCategories(ctx, userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}
