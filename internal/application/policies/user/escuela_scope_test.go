package policies

import (
	"testing"

	"registro-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEscuelaScope(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()

	admin := Actor{UserID: uuid.New(), Role: constants.Admin, EscuelaID: &mine}
	assert.NoError(t, ValidateEscuelaScope(admin, mine))
	assert.Equal(t, ErrOutsideEscuela, ValidateEscuelaScope(admin, other))

	orphan := Actor{UserID: uuid.New(), Role: constants.Admin}
	assert.Equal(t, ErrActorSinEscuela, ValidateEscuelaScope(orphan, mine))

	super := Actor{UserID: uuid.New(), Role: constants.SuperAdmin}
	assert.NoError(t, ValidateEscuelaScope(super, other))
}

func TestScopeEscuela(t *testing.T) {
	mine := uuid.New()

	got, err := ScopeEscuela(Actor{Role: constants.Admin, EscuelaID: &mine})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, mine, *got)

	got, err = ScopeEscuela(Actor{Role: constants.SuperAdmin})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ScopeEscuela(Actor{Role: constants.Profesor})
	assert.Equal(t, ErrActorSinEscuela, err)
}
