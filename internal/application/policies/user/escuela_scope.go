package policies

import (
	"errors"

	"registro-backend/internal/pkg/constants"

	"github.com/google/uuid"
)

var (
	ErrOutsideEscuela  = errors.New("El recurso no pertenece a su escuela")
	ErrActorSinEscuela = errors.New("El usuario no está asociado a ninguna escuela")
)

// Actor is the authenticated caller as seen by application services.
type Actor struct {
	UserID    uuid.UUID
	Role      string
	EscuelaID *uuid.UUID
}

// IsSuperAdmin reports whether the actor crosses escuela boundaries.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == constants.SuperAdmin
}

// ValidateEscuelaScope allows SUPER_ADMIN everywhere and everyone else only inside their own escuela.
func ValidateEscuelaScope(actor Actor, escuelaID uuid.UUID) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if actor.EscuelaID == nil {
		return ErrActorSinEscuela
	}
	if *actor.EscuelaID != escuelaID {
		return ErrOutsideEscuela
	}
	return nil
}

// ScopeEscuela returns the escuela a list query must be restricted to, or nil for SUPER_ADMIN.
func ScopeEscuela(actor Actor) (*uuid.UUID, error) {
	if actor.IsSuperAdmin() {
		return nil, nil
	}
	if actor.EscuelaID == nil {
		return nil, ErrActorSinEscuela
	}
	return actor.EscuelaID, nil
}
