package middleware

import (
	"registro-backend/internal/pkg/constants"
	"registro-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizePermission checks the session user's tipo against constants.PermissionRoles.
// Unconfigured permission -> 500; role not allowed -> 403.
func AuthorizePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "No autenticado")
		}
		m, _ := user.(map[string]interface{})
		role := str(m["tipo"])
		if role == "" {
			return response.Error(c, "Error de autorización", fiber.StatusInternalServerError, nil)
		}
		if roles, ok := constants.PermissionRoles[permission]; !ok || len(roles) == 0 {
			return response.Error(c, "Error de configuración de permisos", fiber.StatusInternalServerError, nil)
		}
		if !constants.AllowedRole(permission, role) {
			return response.Error(c, "No tiene permiso para realizar esta acción", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
