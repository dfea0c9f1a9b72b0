package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mc3-grc/user-lifecycle-service/internal/api"
)

// AdminHandler exposes the single operation-dispatch endpoint the admin UI
// calls.
type AdminHandler struct {
	dispatcher *api.Dispatcher
}

// operationRequest is the dispatch envelope.
type operationRequest struct {
	Operation string        `json:"operation"`
	Arguments api.Arguments `json:"arguments"`
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(dispatcher *api.Dispatcher) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher}
}

// Dispatch handles POST /admin/operations.
func (h *AdminHandler) Dispatch(c *fiber.Ctx) error {
	var req operationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	op := api.ParseOperation(req.Operation)
	result := h.dispatcher.Dispatch(c.UserContext(), op, req.Arguments)
	return c.JSON(result)
}
