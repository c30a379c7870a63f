package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/transfer"
)

type SchedulerState interface {
	IsActive() bool
	Interval() time.Duration
}

type SchedulerHandler struct {
	s SchedulerState
}

func NewSchedulerHandler(s SchedulerState) *SchedulerHandler {
	return &SchedulerHandler{s: s}
}

func (h *SchedulerHandler) Status(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(transfer.SchedulerStatus{
		Active:   h.s.IsActive(),
		Interval: h.s.Interval().String(),
	})
}
