// Package common holds the error mapping and caller helpers every API handler shares.
package common

import (
	"errors"

	userPolicies "registro-backend/internal/application/policies/user"
	"registro-backend/internal/middleware"
	"registro-backend/internal/pkg/response"
	"registro-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Status pairs a sentinel error with the HTTP status it is rendered with.
type Status struct {
	Err  error
	Code int
}

// Fail renders err in the error envelope. Field failures answer 400 with details.fields,
// known sentinels answer their status with the sentinel's message, the rest 500.
func Fail(c *fiber.Ctx, err error, known ...Status) error {
	if fields, ok := validation.AsErrors(err); ok {
		return response.Fields(c, validation.Message, fields)
	}
	for _, k := range known {
		if errors.Is(err, k.Err) {
			return response.Error(c, k.Err.Error(), k.Code, nil)
		}
	}
	switch {
	case errors.Is(err, userPolicies.ErrActorSinEscuela):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, userPolicies.ErrOutsideEscuela):
		return response.Error(c, "Recurso no encontrado", fiber.StatusNotFound, nil)
	}
	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// Unauthenticated answers a route reached without a usable session user.
func Unauthenticated(c *fiber.Ctx) error {
	return response.Unauthorized(c, "No autenticado")
}

// BadBody answers a request body that could not be decoded.
func BadBody(c *fiber.Ctx) error {
	return response.Error(c, "Cuerpo de la solicitud inválido", fiber.StatusBadRequest, nil)
}
