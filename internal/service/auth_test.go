package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealgram/backend/internal/service"
	"github.com/mealgram/backend/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	db := testutil.NewDB(t)
	auth := service.NewAuthService(db, "test-secret")
	ctx := context.Background()

	user, err := auth.Register(ctx, service.RegisterInput{
		Email:    "cook@example.com",
		Username: "cook",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "cook", user.Username)

	token, err := auth.Login(ctx, "cook@example.com", "password123")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "cook", claims.Username)
}

func TestRegisterDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	auth := service.NewAuthService(db, "test-secret")
	ctx := context.Background()

	input := service.RegisterInput{
		Email:    "cook@example.com",
		Username: "cook",
		Password: "password123",
	}
	_, err := auth.Register(ctx, input)
	require.NoError(t, err)

	_, err = auth.Register(ctx, input)
	assert.ErrorIs(t, err, service.ErrConflict)

	// Same username under a different email is still taken.
	input.Email = "other@example.com"
	_, err = auth.Register(ctx, input)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestLoginBadCredentials(t *testing.T) {
	db := testutil.NewDB(t)
	auth := service.NewAuthService(db, "test-secret")
	ctx := context.Background()

	_, err := auth.Register(ctx, service.RegisterInput{
		Email:    "cook@example.com",
		Username: "cook",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = auth.Login(ctx, "cook@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	db := testutil.NewDB(t)
	auth := service.NewAuthService(db, "test-secret")

	_, err := auth.ValidateToken("not-a-token")
	assert.Error(t, err)

	other := service.NewAuthService(db, "different-secret")
	_, err = other.Register(context.Background(), service.RegisterInput{
		Email:    "cook@example.com",
		Username: "cook",
		Password: "password123",
	})
	require.NoError(t, err)

	token, err := other.Login(context.Background(), "cook@example.com", "password123")
	require.NoError(t, err)

	// Signed with a different secret.
	_, err = auth.ValidateToken(token)
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	db := testutil.NewDB(t)
	auth := service.NewAuthService(db, "test-secret")

	_, err := auth.Register(context.Background(), service.RegisterInput{
		Email:    "cook@example.com",
		Username: "cook",
		Password: "short",
	})
	assert.True(t, service.IsValidation(err))
}
