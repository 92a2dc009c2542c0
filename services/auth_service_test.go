package services

import (
	"context"
	"testing"
	"time"

	"salon-booking-backend/logger"
	"salon-booking-backend/repository"
	"salon-booking-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAdminAndLogin(t *testing.T) {
	store := repository.NewMemoryStore()
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	svc := NewAuthService(store.Admins(), issuer, logger.NewNop())
	ctx := context.Background()

	user, created, err := svc.MakeAdmin(ctx, "Owner@Salon.co", "Owner", "password123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "owner@salon.co", user.Email)

	res, err := svc.Login(ctx, "owner@salon.co", "password123")
	require.NoError(t, err)
	assert.NotNil(t, res.User.LastLogin)

	claims, err := issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, true, claims["admin"])

	_, err = svc.Login(ctx, "owner@salon.co", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@salon.co", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Promoting again keeps the account and can rotate the password.
	_, created, err = svc.MakeAdmin(ctx, "owner@salon.co", "", "newpassword1")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login(ctx, "owner@salon.co", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	res, err = svc.Login(ctx, "owner@salon.co", "newpassword1")
	require.NoError(t, err)
	assert.Equal(t, "Owner", res.User.Name)
}

func TestMakeAdminValidation(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAuthService(store.Admins(), utils.NewTokenIssuer("s", time.Hour), logger.NewNop())

	_, _, err := svc.MakeAdmin(context.Background(), "not-an-email", "", "password123")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = svc.MakeAdmin(context.Background(), "a@b.co", "", "short")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
