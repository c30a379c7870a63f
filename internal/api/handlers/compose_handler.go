package handlers

import (
	"log/slog"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type ComposeHandler struct {
	composer *service.Composer
}

func NewComposeHandler(composer *service.Composer) *ComposeHandler {
	return &ComposeHandler{composer: composer}
}

// Preview returns the final post text with hashtags applied and whether it
// fits the length limit.
func (h *ComposeHandler) Preview(c *fiber.Ctx) error {
	var req transfer.PostCreation
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse request body")
	}

	content := h.composer.Compose(req.Content, req.Hashtags)
	length := utf8.RuneCountInString(content)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"content":    content,
		"length":     length,
		"max_length": models.MaxContentLength,
		"fits":       length <= models.MaxContentLength,
		"generator":  h.composer.CanGenerate(),
	})
}

func (h *ComposeHandler) Generate(c *fiber.Ctx) error {
	var req transfer.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse request body")
	}

	content, err := h.composer.Suggest(c.Context(), req.Prompt)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.GenerateResponse{Content: content})
}
