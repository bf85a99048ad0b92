package database

import (
	"registro-backend/internal/domain"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrations is the ordered schema history. Append only; never edit a released entry.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20250101-0000-base",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Escuela{},
					&domain.Curso{},
					&domain.Usuario{},
					&domain.Estudiante{},
					&domain.AcudienteEstudiante{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&domain.AcudienteEstudiante{},
					&domain.Estudiante{},
					&domain.Usuario{},
					&domain.Curso{},
					&domain.Escuela{},
				)
			},
		},
		{
			ID: "20250102-0000-invitaciones",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Invitacion{},
					&domain.RegistroUso{},
					&domain.SolicitudRegistro{},
					&domain.SolicitudEstudiante{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&domain.SolicitudEstudiante{},
					&domain.SolicitudRegistro{},
					&domain.RegistroUso{},
					&domain.Invitacion{},
				)
			},
		},
		{
			ID: "20250103-0000-eventos",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Evento{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Evento{})
			},
		},
	}
}

// Migrate applies every pending migration.
func Migrate(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, Migrations()).Migrate()
}

// RollbackLast undoes the most recent migration.
func RollbackLast(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, Migrations()).RollbackLast()
}
