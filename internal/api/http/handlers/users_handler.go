package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// UsersHandler serves the assignment dropdown listing.
type UsersHandler struct {
	service *service.TicketService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(ticketService *service.TicketService) *UsersHandler {
	return &UsersHandler{service: ticketService}
}

// ListAssignable GET /api/users. Route is gated to agents and admins; the
// result contains only users eligible to receive tickets.
func (h *UsersHandler) ListAssignable(c *fiber.Ctx) error {
	users, err := h.service.ListAssignableUsers(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AssignableUserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.AssignableUserResponse{
			ID:    users[i].ID,
			Name:  users[i].Name,
			Email: users[i].Email,
			Role:  users[i].Role,
		})
	}
	return c.JSON(fiber.Map{"users": items})
}
