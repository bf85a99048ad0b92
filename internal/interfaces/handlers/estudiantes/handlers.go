package estudiantes

import (
	estsvc "registro-backend/internal/application/estudiantes"
	invsvc "registro-backend/internal/application/invitations"
	"registro-backend/internal/interfaces/handlers/common"
	"registro-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *estsvc.Service
}

// Buscar GET /api/v1/estudiantes/public/buscar. Public; scoped by the invitation code.
func (h *Handlers) Buscar(c *fiber.Ctx) error {
	var in estsvc.SearchInput
	if err := c.QueryParser(&in); err != nil {
		return common.BadBody(c)
	}
	res, err := h.Service.Search(c.UserContext(), in)
	if err != nil {
		return common.Fail(c, err, common.Status{Err: invsvc.ErrInvalidCode, Code: fiber.StatusBadRequest})
	}
	return response.Success(c, "Estudiantes encontrados", res, map[string]interface{}{"total": len(res)})
}
