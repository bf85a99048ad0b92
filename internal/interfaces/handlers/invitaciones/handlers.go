package invitaciones

import (
	invsvc "registro-backend/internal/application/invitations"
	"registro-backend/internal/interfaces/handlers/common"
	"registro-backend/internal/middleware"
	"registro-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *invsvc.Service
}

var known = []common.Status{
	{Err: invsvc.ErrNotFound, Code: fiber.StatusNotFound},
	{Err: invsvc.ErrInvalidCode, Code: fiber.StatusBadRequest},
	{Err: invsvc.ErrOnlyActiveCanBeRevoked, Code: fiber.StatusConflict},
}

// POST /api/v1/invitaciones
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	var in invsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return common.BadBody(c)
	}
	inv, err := h.Service.Create(c.UserContext(), actor, in)
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.SuccessCreated(c, "Invitación creada", inv, nil)
}

// GET /api/v1/invitaciones?pagina=&limite=&estado=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	pagina, limite := invsvc.NormalizePage(c.QueryInt("pagina", 1), c.QueryInt("limite", 10))
	res, err := h.Service.List(c.UserContext(), actor, invsvc.ListInput{
		Pagina: pagina,
		Limite: limite,
		Estado: c.Query("estado"),
	})
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Invitaciones obtenidas", res.Invitaciones, response.Page{
		Pagina: pagina,
		Limite: limite,
		Total:  res.Total,
	})
}

// GET /api/v1/invitaciones/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	inv, err := h.Service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Invitación obtenida", inv, nil)
}

// DELETE /api/v1/invitaciones/:id revokes; the row is kept.
func (h *Handlers) Revoke(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	inv, err := h.Service.Revoke(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Invitación revocada", inv, nil)
}

// GET /api/v1/invitaciones/:id/eventos
func (h *Handlers) Eventos(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return common.Unauthenticated(c)
	}
	eventos, err := h.Service.ListEventos(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Eventos obtenidos", eventos, nil)
}

type validarRequest struct {
	Codigo string `json:"codigo"`
}

// POST /api/v1/invitaciones/public/validar (no session)
func (h *Handlers) Validar(c *fiber.Ctx) error {
	var req validarRequest
	if err := c.BodyParser(&req); err != nil {
		return common.BadBody(c)
	}
	res, err := h.Service.ValidateCode(c.UserContext(), req.Codigo)
	if err != nil {
		return common.Fail(c, err, known...)
	}
	return response.Success(c, "Código válido", res, nil)
}
