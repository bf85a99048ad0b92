package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Usuario is a login account. Tipo holds the role (see constants.Roles).
type Usuario struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Nombre       string         `gorm:"column:nombre;not null" json:"nombre"`
	Apellidos    string         `gorm:"column:apellidos;not null" json:"apellidos"`
	Username     string         `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email        string         `gorm:"column:email;not null;index" json:"email"`
	Telefono     *string        `gorm:"column:telefono" json:"telefono"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Tipo         string         `gorm:"column:tipo;type:varchar(20);not null" json:"tipo"`
	EscuelaID    *uuid.UUID     `gorm:"column:escuela_id;type:uuid;index" json:"escuelaId"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Usuario) TableName() string {
	return "usuarios"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *Usuario) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NombreCompleto is the display name used in emails and session.
func (u *Usuario) NombreCompleto() string {
	if u.Apellidos == "" {
		return u.Nombre
	}
	return u.Nombre + " " + u.Apellidos
}
