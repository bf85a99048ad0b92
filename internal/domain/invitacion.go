package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TipoInvitacion string

const (
	TipoCurso                TipoInvitacion = "CURSO"
	TipoEstudianteEspecifico TipoInvitacion = "ESTUDIANTE_ESPECIFICO"
	TipoPersonal             TipoInvitacion = "PERSONAL"
)

// Valid reports whether t is one of the known invitation scopes.
func (t TipoInvitacion) Valid() bool {
	switch t {
	case TipoCurso, TipoEstudianteEspecifico, TipoPersonal:
		return true
	}
	return false
}

type EstadoInvitacion string

const (
	InvitacionActiva    EstadoInvitacion = "ACTIVO"
	InvitacionUtilizada EstadoInvitacion = "UTILIZADO"
	InvitacionRevocada  EstadoInvitacion = "REVOCADO"
	InvitacionExpirada  EstadoInvitacion = "EXPIRADO"
)

// Invitacion is a capacity-limited, optionally time-bounded registration code.
// UsosActuales never exceeds CantidadUsos; it only moves through solicitud approval.
type Invitacion struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Codigo           string           `gorm:"column:codigo;type:varchar(20);not null;uniqueIndex" json:"codigo"`
	Tipo             TipoInvitacion   `gorm:"column:tipo;type:varchar(30);not null" json:"tipo"`
	EscuelaID        uuid.UUID        `gorm:"column:escuela_id;type:uuid;not null;index" json:"escuelaId"`
	CursoID          *uuid.UUID       `gorm:"column:curso_id;type:uuid" json:"cursoId"`
	EstudianteID     *uuid.UUID       `gorm:"column:estudiante_id;type:uuid" json:"estudianteId"`
	CantidadUsos     int              `gorm:"column:cantidad_usos;not null;default:1" json:"cantidadUsos"`
	UsosActuales     int              `gorm:"column:usos_actuales;not null;default:0" json:"usosActuales"`
	Estado           EstadoInvitacion `gorm:"column:estado;type:varchar(20);not null;default:'ACTIVO';index" json:"estado"`
	CreadoPor        uuid.UUID        `gorm:"column:creado_por;type:uuid;not null" json:"creadoPor"`
	FechaCreacion    time.Time        `gorm:"column:fecha_creacion;autoCreateTime" json:"fechaCreacion"`
	FechaExpiracion  *time.Time       `gorm:"column:fecha_expiracion" json:"fechaExpiracion"`
	FechaUtilizacion *time.Time       `gorm:"column:fecha_utilizacion" json:"fechaUtilizacion"`
	Registros        []RegistroUso    `gorm:"foreignKey:InvitacionID" json:"registros"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (Invitacion) TableName() string {
	return "invitaciones"
}

func (i *Invitacion) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// UsosRestantes is the remaining capacity, never negative.
func (i *Invitacion) UsosRestantes() int {
	if r := i.CantidadUsos - i.UsosActuales; r > 0 {
		return r
	}
	return 0
}

// RegistroUso is one entry of an invitation's append-only usage log.
type RegistroUso struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"-"`
	InvitacionID  uuid.UUID `gorm:"column:invitacion_id;type:uuid;not null;index" json:"-"`
	SolicitudID   uuid.UUID `gorm:"column:solicitud_id;type:uuid;not null" json:"solicitudId"`
	UsuarioID     uuid.UUID `gorm:"column:usuario_id;type:uuid;not null" json:"usuarioId"`
	TipoCuenta    string    `gorm:"column:tipo_cuenta;type:varchar(20);not null" json:"tipoCuenta"`
	FechaRegistro time.Time `gorm:"column:fecha_registro;not null" json:"fechaRegistro"`
}

func (RegistroUso) TableName() string {
	return "invitacion_registros"
}

func (r *RegistroUso) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
