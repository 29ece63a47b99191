package access

import (
	"testing"

	"github.com/shenikar/emergency_coordination_system/internal/apperrors"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScope_Admin(t *testing.T) {
	// Административная роль получает неограниченную область даже без кода LGU
	scope, err := ResolveScope(models.RoleAdmin, "")
	require.NoError(t, err)
	assert.True(t, scope.All)
	assert.True(t, scope.Allows("kidapawan"))
	assert.True(t, scope.Allows("davao"))
}

func TestResolveScope_Responder(t *testing.T) {
	scope, err := ResolveScope(models.RoleResponder, "kidapawan")
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.True(t, scope.Allows("kidapawan"))
	assert.False(t, scope.Allows("davao"))
}

func TestResolveScope_MissingLgu(t *testing.T) {
	// Нет привязки к LGU - это AccessDenied, а не пустая область
	for _, role := range []models.Role{models.RoleResponder, models.RoleUser} {
		_, err := ResolveScope(role, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	}
}
