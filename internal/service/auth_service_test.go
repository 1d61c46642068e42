package service

import (
	"context"
	"testing"

	"github.com/dushixiang/sibyl/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AdminUser{}))
	return NewAuthService(zap.NewNop(), db, "test-secret")
}

func TestAuthService_LoginFlow(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	needsSetup, err := svc.NeedsSetup(ctx)
	require.NoError(t, err)
	assert.True(t, needsSetup)

	require.NoError(t, svc.CreateUser(ctx, "admin", "secret123", "管理员", models.RoleAdmin))

	needsSetup, err = svc.NeedsSetup(ctx)
	require.NoError(t, err)
	assert.False(t, needsSetup)

	t.Run("重复创建同名用户", func(t *testing.T) {
		err := svc.CreateUser(ctx, "admin", "other", "", models.RoleAdmin)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("正确密码登录", func(t *testing.T) {
		resp, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "secret123"}, "127.0.0.1")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "admin", resp.User.Username)

		claims, err := svc.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "sibyl", claims.Issuer)

		user, err := svc.GetCurrentUser(ctx, claims.UserID)
		require.NoError(t, err)
		assert.Equal(t, "管理员", user.Nickname)
	})

	t.Run("错误密码", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "wrong"}, "127.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("不存在的用户", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Username: "ghost", Password: "x"}, "127.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("非法Token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateUser(ctx, "admin", "oldpass", "", models.RoleAdmin))
	resp, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "oldpass"}, "127.0.0.1")
	require.NoError(t, err)
	userID := resp.User.ID

	assert.Error(t, svc.ChangePassword(ctx, userID, "wrong", "newpass"))
	require.NoError(t, svc.ChangePassword(ctx, userID, "oldpass", "newpass"))

	_, err = svc.Login(ctx, LoginRequest{Username: "admin", Password: "oldpass"}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Username: "admin", Password: "newpass"}, "127.0.0.1")
	assert.NoError(t, err)
}
