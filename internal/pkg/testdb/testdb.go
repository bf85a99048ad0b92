// Package testdb opens migrated in-memory databases for tests.
package testdb

import (
	"strings"
	"testing"

	"registro-backend/internal/domain"
	"registro-backend/internal/infrastructure/database"
	"registro-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Open returns a fresh in-memory SQLite DB with every migration applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Fixture is one escuela with a curso, an admin account and an enrolled student.
type Fixture struct {
	Escuela    domain.Escuela
	Curso      domain.Curso
	Admin      domain.Usuario
	Estudiante domain.Estudiante
}

// Seed inserts a Fixture. Admin's password is "secret123".
func Seed(t *testing.T, db *gorm.DB, codigo string) *Fixture {
	t.Helper()
	f := &Fixture{}
	f.Escuela = domain.Escuela{Nombre: "Colegio " + codigo, Codigo: codigo}
	require.NoError(t, db.Create(&f.Escuela).Error)

	f.Curso = domain.Curso{EscuelaID: f.Escuela.ID, Nombre: "Quinto A", Grado: "5"}
	require.NoError(t, db.Create(&f.Curso).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	f.Admin = domain.Usuario{
		Nombre:       "Ana",
		Apellidos:    "Rector",
		Username:     "admin-" + strings.ToLower(codigo),
		Email:        "admin@" + strings.ToLower(codigo) + ".edu",
		PasswordHash: string(hash),
		Tipo:         constants.Admin,
		EscuelaID:    &f.Escuela.ID,
	}
	require.NoError(t, db.Create(&f.Admin).Error)

	f.Estudiante = domain.Estudiante{
		EscuelaID:        f.Escuela.ID,
		CursoID:          f.Curso.ID,
		Nombre:           "Lucía",
		Apellidos:        "Gómez Pardo",
		CodigoEstudiante: strings.ToUpper(codigo) + "-0000CAFE",
	}
	require.NoError(t, db.Create(&f.Estudiante).Error)
	return f
}

// Invitacion inserts an ACTIVO single-use CURSO invitation for f, then applies mut before saving.
func Invitacion(t *testing.T, db *gorm.DB, f *Fixture, mut func(*domain.Invitacion)) *domain.Invitacion {
	t.Helper()
	inv := &domain.Invitacion{
		Codigo:       strings.ToUpper(f.Escuela.Codigo) + "25-" + strings.ToUpper(uuid.NewString()[:6]),
		Tipo:         domain.TipoCurso,
		EscuelaID:    f.Escuela.ID,
		CursoID:      &f.Curso.ID,
		CantidadUsos: 1,
		Estado:       domain.InvitacionActiva,
		CreadoPor:    f.Admin.ID,
	}
	if mut != nil {
		mut(inv)
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}
