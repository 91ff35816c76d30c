package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/codefinder/internal/api/dto"
	"github.com/spec-kit/codefinder/internal/domain"
)

// InboxAPI is what the inbox endpoints need from the inbox service.
type InboxAPI interface {
	ListMessages(ctx context.Context, userID string) ([]domain.InboxEntry, error)
	MarkRead(ctx context.Context, userID, messageID string) error
}

// InboxHandler serves delivered codes.
type InboxHandler struct {
	inbox InboxAPI
}

// NewInboxHandler constructs handler.
func NewInboxHandler(inbox InboxAPI) *InboxHandler {
	return &InboxHandler{inbox: inbox}
}

// List GET /inbox.
func (h *InboxHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.inbox.ListMessages(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	items := make([]dto.InboxMessageResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewInboxMessageResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /inbox/:id/read.
func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.inbox.MarkRead(c.UserContext(), user.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
