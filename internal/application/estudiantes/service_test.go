package estudiantes

import (
	"context"
	"fmt"
	"testing"

	"registro-backend/internal/application/invitations"
	"registro-backend/internal/application/user"
	"registro-backend/internal/domain"
	"registro-backend/internal/pkg/testdb"
	"registro-backend/internal/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db, "TR")
	other := testdb.Seed(t, db, "BV")
	inv := testdb.Invitacion(t, db, f, func(i *domain.Invitacion) { i.CantidadUsos = 3 })
	require.NoError(t, user.LinkAcudiente(db, f.Admin.ID, f.Estudiante.ID))

	svc := &Service{DB: db}

	res, err := svc.Search(context.Background(), SearchInput{CodigoInvitacion: inv.Codigo, Nombre: "LUC"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, f.Estudiante.ID, res[0].ID)
	assert.Equal(t, f.Curso.Nombre, res[0].CursoNombre)
	assert.EqualValues(t, 1, res[0].CantidadAcudientes)

	res, err = svc.Search(context.Background(), SearchInput{CodigoInvitacion: inv.Codigo, CodigoEstudiante: other.Estudiante.CodigoEstudiante})
	require.NoError(t, err)
	assert.Empty(t, res, "students of other escuelas are invisible")

	res, err = svc.Search(context.Background(), SearchInput{CodigoInvitacion: inv.Codigo, Apellidos: "%"})
	require.NoError(t, err)
	assert.Empty(t, res, "wildcards are matched literally")
}

func TestSearch_RequiresCodeAndCriterion(t *testing.T) {
	db := testdb.Open(t)
	svc := &Service{DB: db}

	_, err := svc.Search(context.Background(), SearchInput{})
	verrs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Contains(t, verrs, "codigoInvitacion")
	assert.Contains(t, verrs, "criterios")

	_, err = svc.Search(context.Background(), SearchInput{CodigoInvitacion: "ZZ25-NADA", Nombre: "x"})
	assert.Equal(t, invitations.ErrInvalidCode, err)
}

func TestSearch_CapsResults(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db, "TR")
	inv := testdb.Invitacion(t, db, f, nil)
	for i := 0; i < 25; i++ {
		require.NoError(t, db.Create(&domain.Estudiante{
			EscuelaID:        f.Escuela.ID,
			CursoID:          f.Curso.ID,
			Nombre:           "Ana",
			Apellidos:        fmt.Sprintf("Ruiz %02d", i),
			CodigoEstudiante: fmt.Sprintf("TR-%08d", i),
		}).Error)
	}

	res, err := (&Service{DB: db}).Search(context.Background(), SearchInput{CodigoInvitacion: inv.Codigo, Nombre: "ana"})
	require.NoError(t, err)
	assert.Len(t, res, maxResultados)
	assert.Equal(t, "Ruiz 00", res[0].Apellidos)
}
