package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type MediaSource interface {
	Get(key string) ([]byte, bool)
}

// MediaHandler serves uploads kept in process when no object storage is
// configured.
type MediaHandler struct {
	store MediaSource
}

func NewMediaHandler(store MediaSource) *MediaHandler {
	return &MediaHandler{store: store}
}

func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	data, ok := h.store.Get(c.Params("key"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "media not found",
		})
	}
	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Status(fiber.StatusOK).Send(data)
}

func Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}
