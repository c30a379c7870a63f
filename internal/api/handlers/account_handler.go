package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type AccountHandler struct {
	s service.AccountRegistry
}

func NewAccountHandler(s service.AccountRegistry) *AccountHandler {
	return &AccountHandler{s: s}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.s.ListAccounts(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) AddAccount(c *fiber.Ctx) error {
	var req transfer.AccountCreation
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse request body")
	}

	account, err := h.s.AddAccount(c.Context(), req.Platform, req.AccountName, req.Credential)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	account, err := h.s.GetAccount(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

func (h *AccountHandler) UpdateAccount(c *fiber.Ctx) error {
	var req transfer.AccountUpdate
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse request body")
	}

	account, err := h.s.UpdateAccount(c.Context(), c.Params("id"), service.AccountPatch{
		AccountName: req.AccountName,
		Connected:   req.Connected,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

func (h *AccountHandler) RemoveAccount(c *fiber.Ctx) error {
	if err := h.s.RemoveAccount(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RefreshAccount re-validates the credential. When the platform rejects it
// the now disconnected account is returned alongside the error.
func (h *AccountHandler) RefreshAccount(c *fiber.Ctx) error {
	account, err := h.s.RefreshProfile(c.Context(), c.Params("id"))
	if err != nil {
		if account != nil && errors.Is(err, service.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   err.Error(),
				"account": account,
			})
		}
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}
