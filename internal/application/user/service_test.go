package user

import (
	"context"
	"strings"
	"testing"

	"registro-backend/internal/domain"
	"registro-backend/internal/pkg/constants"
	"registro-backend/internal/pkg/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGeneratePassword(t *testing.T) {
	a, err := GeneratePassword()
	require.NoError(t, err)
	b, err := GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, "0O1lI"))
}

func TestEnsureAcudiente_CreatesThenReuses(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db, "TR")

	u, cred, err := EnsureAcudiente(db, AcudienteInput{
		Nombre: "Marta", Apellidos: "Pardo", Email: "Marta.Pardo@Example.com", EscuelaID: f.Escuela.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "marta.pardo@example.com", u.Username)
	assert.Equal(t, constants.Acudiente, u.Tipo)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cred.Password)))

	again, cred2, err := EnsureAcudiente(db, AcudienteInput{Nombre: "Marta", Apellidos: "Pardo", Email: "marta.pardo@example.com"})
	require.NoError(t, err)
	assert.Nil(t, cred2)
	assert.Equal(t, u.ID, again.ID)
}

func TestEnsureAcudiente_RejectsStaffEmail(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db, "TR")
	require.NoError(t, db.Model(&f.Admin).Update("username", "rector@tr.edu").Error)

	_, _, err := EnsureAcudiente(db, AcudienteInput{Nombre: "X", Apellidos: "Y", Email: "rector@tr.edu"})
	assert.Equal(t, ErrCuentaConflicto, err)
}

func TestCreateEstudianteAndLink(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db, "TR")

	est, cred, err := CreateEstudiante(db, NuevoEstudianteInput{
		Escuela: &f.Escuela, CursoID: f.Curso.ID, Nombre: " Tomás ", Apellidos: "Gómez",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^TR-[0-9A-F]{8}$`, est.CodigoEstudiante)
	assert.Equal(t, "Tomás", est.Nombre)
	require.NotNil(t, est.UsuarioID)
	assert.Equal(t, est.CodigoEstudiante, cred.Username)
	assert.Equal(t, constants.Estudiante, cred.TipoCuenta)

	svc := &Service{DB: db}
	cuenta, err := svc.GetByID(context.Background(), est.UsuarioID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.Estudiante, cuenta.Tipo)

	require.NoError(t, LinkAcudiente(db, f.Admin.ID, est.ID))
	require.NoError(t, LinkAcudiente(db, f.Admin.ID, est.ID))
	var n int64
	db.Model(&domain.AcudienteEstudiante{}).Where("estudiante_id = ?", est.ID).Count(&n)
	assert.EqualValues(t, 1, n)

	_, err = svc.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, ErrNotFound, err)
}
