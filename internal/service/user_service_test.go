package service

import (
	"context"
	"testing"
	"time"

	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *testEnv) {
	t.Helper()
	e := newTestEnv(t)
	jwt := pkg.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	return NewUserService(e.db, redis.NewTokenRepository(e.rdb), jwt, e.logger), e
}

func TestRegisterAndLogin(t *testing.T) {
	svc, e := newUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, " ana ", "secret1", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.NotEqual(t, "secret1", u.Password)

	_, err = svc.Register(ctx, "ana", "secret1", "other@example.com")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register(ctx, "other", "secret1", "ana@example.com")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register(ctx, "bo", "123", "bo@example.com")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Register(ctx, "bo", "secret1", "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Login(ctx, "ana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := svc.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	stored, err := e.mr.Get("login:user:token:1")
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, stored)

	require.NoError(t, svc.Logout(ctx, u.ID))
	assert.False(t, e.mr.Exists("login:user:token:1"))
}

func TestRefreshReplacesStoredToken(t *testing.T) {
	svc, e := newUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "ana", "secret1", "ana@example.com")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "ana", "secret1")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	stored, err := e.mr.Get("login:user:token:1")
	require.NoError(t, err)
	assert.Equal(t, next.AccessToken, stored)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, pkg.ErrRefreshInvalid)
}

func TestChangePassword(t *testing.T) {
	svc, e := newUserService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "ana", "secret1", "ana@example.com")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ana", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "secret2"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "secret1", "x"), ErrInvalidArgument)
	assert.ErrorIs(t, svc.ChangePassword(ctx, 999, "secret1", "secret2"), ErrNotFound)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "secret1", "secret2"))
	// 修改后需要重新登录
	assert.False(t, e.mr.Exists("login:user:token:1"))
	_, err = svc.Login(ctx, "ana", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ana", "secret2")
	assert.NoError(t, err)
}
