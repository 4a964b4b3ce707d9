package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/scope"
	dErrors "communiserver/pkg/domain-errors"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "communiserver")

	villageID := uuid.New()
	actor := scope.ActorContext{
		UserID:    uuid.New(),
		Role:      scope.RoleVillageLeader,
		VillageID: &villageID,
	}

	token, err := svc.GenerateToken(actor, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID, got.UserID)
	assert.Equal(t, scope.RoleVillageLeader, got.Role)
	require.NotNil(t, got.VillageID)
	assert.Equal(t, villageID, *got.VillageID)
	assert.Nil(t, got.CellID)
	assert.Nil(t, got.IsiboID)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("test-signing-key", "communiserver")

	token, err := svc.GenerateToken(scope.ActorContext{
		UserID: uuid.New(),
		Role:   scope.RoleAdmin,
	}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateToken_WrongKey(t *testing.T) {
	issuer := NewJWTService("key-one", "communiserver")
	verifier := NewJWTService("key-two", "communiserver")

	token, err := issuer.GenerateToken(scope.ActorContext{
		UserID: uuid.New(),
		Role:   scope.RoleCitizen,
	}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-signing-key", "communiserver")

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestClaimsActor_UnknownRole(t *testing.T) {
	c := &Claims{Role: "MAYOR"}
	c.Subject = uuid.NewString()

	_, err := c.Actor()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestClaimsActor_BadLocationClaim(t *testing.T) {
	c := &Claims{Role: string(scope.RoleIsiboLeader), IsiboID: "not-a-uuid"}
	c.Subject = uuid.NewString()

	_, err := c.Actor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isibo_id")
}
