package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EstadoSolicitud string

const (
	SolicitudPendiente EstadoSolicitud = "PENDIENTE"
	SolicitudAprobada  EstadoSolicitud = "APROBADA"
	SolicitudRechazada EstadoSolicitud = "RECHAZADA"
)

// Terminal reports whether no further transition is allowed from e.
func (e EstadoSolicitud) Terminal() bool {
	return e == SolicitudAprobada || e == SolicitudRechazada
}

// SolicitudRegistro is a guardian's request to register with one or more students.
// Estado leaves PENDIENTE exactly once.
type SolicitudRegistro struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvitacionID   uuid.UUID             `gorm:"column:invitacion_id;type:uuid;not null;index" json:"invitacionId"`
	EscuelaID      uuid.UUID             `gorm:"column:escuela_id;type:uuid;not null;index" json:"escuelaId"`
	Nombre         string                `gorm:"column:nombre;not null" json:"nombre"`
	Apellidos      string                `gorm:"column:apellidos;not null" json:"apellidos"`
	Email          string                `gorm:"column:email;not null" json:"email"`
	Telefono       *string               `gorm:"column:telefono" json:"telefono"`
	Estudiantes    []SolicitudEstudiante `gorm:"foreignKey:SolicitudID" json:"estudiantes"`
	Estado         EstadoSolicitud       `gorm:"column:estado;type:varchar(20);not null;default:'PENDIENTE';index" json:"estado"`
	FechaSolicitud time.Time             `gorm:"column:fecha_solicitud;autoCreateTime" json:"fechaSolicitud"`
	FechaRevision  *time.Time            `gorm:"column:fecha_revision" json:"fechaRevision"`
	RevisadoPor    *uuid.UUID            `gorm:"column:revisado_por;type:uuid" json:"revisadoPor"`
	Comentarios    *string               `gorm:"column:comentarios" json:"comentarios"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func (SolicitudRegistro) TableName() string {
	return "solicitudes_registro"
}

func (s *SolicitudRegistro) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SolicitudEstudiante is one entry of a solicitud's student list: either a new student
// (EsExistente=false) or a reference to an already-registered one.
type SolicitudEstudiante struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SolicitudID           uuid.UUID  `gorm:"column:solicitud_id;type:uuid;not null;index" json:"-"`
	Posicion              int        `gorm:"column:posicion;not null" json:"-"`
	EsExistente           bool       `gorm:"column:es_existente;not null" json:"esExistente"`
	EstudianteExistenteID *uuid.UUID `gorm:"column:estudiante_existente_id;type:uuid" json:"estudianteExistenteId,omitempty"`
	Nombre                string     `gorm:"column:nombre;not null" json:"nombre"`
	Apellidos             string     `gorm:"column:apellidos;not null" json:"apellidos"`
	CursoID               *uuid.UUID `gorm:"column:curso_id;type:uuid" json:"cursoId,omitempty"`
	FechaNacimiento       *time.Time `gorm:"column:fecha_nacimiento" json:"fechaNacimiento,omitempty"`
	Email                 *string    `gorm:"column:email" json:"email,omitempty"`
	EstudianteCreadoID    *uuid.UUID `gorm:"column:estudiante_creado_id;type:uuid" json:"estudianteCreadoId,omitempty"`
}

func (SolicitudEstudiante) TableName() string {
	return "solicitud_estudiantes"
}

func (s *SolicitudEstudiante) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
