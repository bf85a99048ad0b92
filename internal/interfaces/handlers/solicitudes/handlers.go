package solicitudes

import (
	invsvc "registro-backend/internal/application/invitations"
	solsvc "registro-backend/internal/application/solicitudes"
	usersvc "registro-backend/internal/application/user"
	"registro-backend/internal/interfaces/handlers/common"
	"registro-backend/internal/middleware"
	"registro-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *solsvc.Service
}

var known = []common.Status{
	{Err: solsvc.ErrNotFound, Code: fiber.StatusNotFound},
	{Err: invsvc.ErrInvalidCode, Code: fiber.StatusBadRequest},
	{Err: solsvc.ErrAlreadyReviewed, Code: fiber.StatusConflict},
	{Err: solsvc.ErrInvitationUnavailable, Code: fiber.StatusConflict},
	{Err: usersvc.ErrCuentaConflicto, Code: fiber.StatusConflict},
}

// Create POST /api/v1/solicitudes/public. The guardian has no session.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in solsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return common.BadBody(c)
	}
	sol, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.SuccessCreated(c, "Solicitud enviada. Recibirá un correo cuando sea revisada", fiber.Map{
		"id":     sol.ID,
		"estado": sol.Estado,
	}, nil)
}

// List GET /api/v1/solicitudes?estado=&pagina=&limite= (PENDIENTE by default)
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	pagina, limite := invsvc.NormalizePage(c.QueryInt("pagina", 1), c.QueryInt("limite", 10))
	res, err := h.Service.List(c.UserContext(), actor, solsvc.ListInput{
		Pagina: pagina,
		Limite: limite,
		Estado: c.Query("estado"),
	})
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Solicitudes obtenidas", res.Solicitudes, response.Page{
		Pagina: pagina,
		Limite: limite,
		Total:  res.Total,
	})
}

// Get GET /api/v1/solicitudes/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	sol, err := h.Service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Solicitud obtenida", sol, nil)
}

// Aprobar PUT /api/v1/solicitudes/:id/aprobar
func (h *Handlers) Aprobar(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	sol, err := h.Service.Approve(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Solicitud aprobada", sol, nil)
}

type rechazarRequest struct {
	Motivo string `json:"motivo"`
}

// Rechazar PUT /api/v1/solicitudes/:id/rechazar with {motivo}
func (h *Handlers) Rechazar(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	var req rechazarRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return common.BadBody(c)
		}
	}
	sol, err := h.Service.Reject(c.UserContext(), actor, c.Params("id"), req.Motivo)
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Solicitud rechazada", sol, nil)
}
