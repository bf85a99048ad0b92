package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Escuela is the tenant that scopes courses, students, accounts and invitations.
type Escuela struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Nombre    string         `gorm:"column:nombre;not null;uniqueIndex" json:"nombre"`
	Codigo    string         `gorm:"column:codigo;type:varchar(10);not null;uniqueIndex" json:"codigo"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Escuela) TableName() string {
	return "escuelas"
}

// BeforeCreate ensures id is set for DBs without default uuid.
func (e *Escuela) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Prefijo is the two-letter uppercase prefix used in invitation and student codes.
// It comes from Codigo, falling back to Nombre, then "XX".
func (e *Escuela) Prefijo() string {
	for _, src := range []string{e.Codigo, e.Nombre} {
		var b strings.Builder
		for _, r := range strings.ToUpper(src) {
			if r < 'A' || r > 'Z' {
				continue
			}
			b.WriteRune(r)
			if b.Len() == 2 {
				return b.String()
			}
		}
	}
	return "XX"
}

// Curso is a course/class section. Invitations and new students reference it.
type Curso struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EscuelaID uuid.UUID `gorm:"column:escuela_id;type:uuid;not null;index" json:"escuelaId"`
	Nombre    string    `gorm:"column:nombre;not null" json:"nombre"`
	Grado     string    `gorm:"column:grado" json:"grado"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Curso) TableName() string {
	return "cursos"
}

func (c *Curso) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
