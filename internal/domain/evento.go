package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EntidadInvitacion = "INVITACION"
	EntidadSolicitud  = "SOLICITUD"
)

const (
	EventoInvitacionCreada   = "INVITACION_CREADA"
	EventoInvitacionRevocada = "INVITACION_REVOCADA"
	EventoInvitacionExpirada = "INVITACION_EXPIRADA"
	EventoInvitacionAgotada  = "INVITACION_UTILIZADA"
	EventoSolicitudCreada    = "SOLICITUD_CREADA"
	EventoSolicitudAprobada  = "SOLICITUD_APROBADA"
	EventoSolicitudRechazada = "SOLICITUD_RECHAZADA"
)

// Evento is an audit row written alongside every workflow transition.
// InvitacionID is always set so one invitation's whole history can be listed.
type Evento struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Entidad      string         `gorm:"column:entidad;type:varchar(20);not null" json:"entidad"`
	EntidadID    uuid.UUID      `gorm:"column:entidad_id;type:uuid;not null;index" json:"entidadId"`
	InvitacionID uuid.UUID      `gorm:"column:invitacion_id;type:uuid;not null;index" json:"invitacionId"`
	Tipo         string         `gorm:"column:tipo;type:varchar(30);not null" json:"tipo"`
	ActorID      *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actorId"`
	Data         datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (Evento) TableName() string {
	return "eventos"
}

func (e *Evento) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NuevoEvento builds an audit row; data is stored as JSON and may be nil.
func NuevoEvento(entidad string, entidadID, invitacionID uuid.UUID, tipo string, actorID *uuid.UUID, data map[string]interface{}) *Evento {
	ev := &Evento{
		Entidad:      entidad,
		EntidadID:    entidadID,
		InvitacionID: invitacionID,
		Tipo:         tipo,
		ActorID:      actorID,
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			ev.Data = datatypes.JSON(b)
		}
	}
	return ev
}
