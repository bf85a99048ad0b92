package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Estudiante is an already-registered student. UsuarioID is set when the student has its own account.
type Estudiante struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EscuelaID        uuid.UUID  `gorm:"column:escuela_id;type:uuid;not null;index" json:"escuelaId"`
	CursoID          uuid.UUID  `gorm:"column:curso_id;type:uuid;not null;index" json:"cursoId"`
	Nombre           string     `gorm:"column:nombre;not null" json:"nombre"`
	Apellidos        string     `gorm:"column:apellidos;not null" json:"apellidos"`
	Email            *string    `gorm:"column:email" json:"email"`
	CodigoEstudiante string     `gorm:"column:codigo_estudiante;type:varchar(30);not null;uniqueIndex" json:"codigoEstudiante"`
	FechaNacimiento  *time.Time `gorm:"column:fecha_nacimiento" json:"fechaNacimiento"`
	UsuarioID        *uuid.UUID `gorm:"column:usuario_id;type:uuid" json:"usuarioId"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (Estudiante) TableName() string {
	return "estudiantes"
}

func (e *Estudiante) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AcudienteEstudiante links a guardian account to a student.
type AcudienteEstudiante struct {
	AcudienteID  uuid.UUID `gorm:"column:acudiente_id;type:uuid;primaryKey" json:"acudienteId"`
	EstudianteID uuid.UUID `gorm:"column:estudiante_id;type:uuid;primaryKey" json:"estudianteId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (AcudienteEstudiante) TableName() string {
	return "acudientes_estudiantes"
}
