package policies

import (
	"errors"
	"time"

	"registro-backend/internal/domain"
)

// Reason explains why an invitation cannot back a new registration.
// It is for logs and audit only; callers show one uniform message.
type Reason string

const (
	Usable          Reason = ""
	ReasonRevoked   Reason = "revoked"
	ReasonExpired   Reason = "expired"
	ReasonExhausted Reason = "exhausted"
	ReasonNotActive Reason = "not_active"
)

var ErrOnlyActiveCanBeRevoked = errors.New("Solo se pueden revocar invitaciones activas")

// EvaluateUsability decides whether inv may accept a new registration at now.
// Expiration is derived from FechaExpiracion, never from the stored estado alone,
// and capacity is checked even while estado still reads ACTIVO.
func EvaluateUsability(inv *domain.Invitacion, now time.Time) Reason {
	switch inv.Estado {
	case domain.InvitacionRevocada:
		return ReasonRevoked
	case domain.InvitacionExpirada:
		return ReasonExpired
	}
	if IsPastExpiration(inv, now) {
		return ReasonExpired
	}
	if inv.Estado == domain.InvitacionUtilizada || inv.UsosActuales >= inv.CantidadUsos {
		return ReasonExhausted
	}
	if inv.Estado != domain.InvitacionActiva {
		return ReasonNotActive
	}
	return Usable
}

// IsPastExpiration reports whether now is after the invitation's expiration instant.
func IsPastExpiration(inv *domain.Invitacion, now time.Time) bool {
	return inv.FechaExpiracion != nil && now.After(*inv.FechaExpiracion)
}

// EffectiveEstado is the estado a reader should see at now: stored terminal states win,
// otherwise a passed expiration reads EXPIRADO and a full quota reads UTILIZADO.
func EffectiveEstado(inv *domain.Invitacion, now time.Time) domain.EstadoInvitacion {
	if inv.Estado != domain.InvitacionActiva {
		return inv.Estado
	}
	if IsPastExpiration(inv, now) {
		return domain.InvitacionExpirada
	}
	if inv.UsosActuales >= inv.CantidadUsos {
		return domain.InvitacionUtilizada
	}
	return domain.InvitacionActiva
}

// ValidateRevocation allows revocation only while the invitation still reads ACTIVO at now.
func ValidateRevocation(inv *domain.Invitacion, now time.Time) error {
	if EffectiveEstado(inv, now) != domain.InvitacionActiva {
		return ErrOnlyActiveCanBeRevoked
	}
	return nil
}
