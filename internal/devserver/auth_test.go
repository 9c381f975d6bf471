package devserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/pkg/types"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(newTestDB(t), common.NewMemoryCache(), testAuthConfig())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuth(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &types.SignUpRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, float64(120), user.DailyMinutes)
	assert.NotEqual(t, "hunter22", user.Password, "password must be stored hashed")

	_, err = svc.Register(ctx, &types.SignUpRequest{Email: "ada@example.com", Password: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	loggedIn, tokens, err := svc.Login(ctx, &types.LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, tokens.Access)
	assert.NotEmpty(t, tokens.Refresh)

	_, _, err = svc.Login(ctx, &types.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, &types.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	svc := newTestAuth(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &types.SignUpRequest{Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)
	_, tokens, err := svc.Login(ctx, &types.LoginRequest{Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, tokens.Refresh)
	require.NoError(t, err)

	resolved, err := svc.ValidateAccess(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	// The token kinds are not interchangeable.
	_, err = svc.ValidateAccess(ctx, tokens.Refresh)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = svc.Refresh(ctx, tokens.Access)
	assert.ErrorIs(t, err, ErrSessionExpired)

	require.NoError(t, svc.Logout(ctx, tokens.Refresh))

	_, err = svc.Refresh(ctx, tokens.Refresh)
	assert.ErrorIs(t, err, ErrSessionExpired, "revoked refresh token must stop working")

	// Logging out an already-dead token is not an error.
	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestPasswordReset(t *testing.T) {
	svc := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &types.SignUpRequest{Email: "eve@example.com", Password: "old-pw"})
	require.NoError(t, err)

	token, err := svc.ForgotPassword(ctx, "eve@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Unknown addresses get a silent success with no token.
	none, err := svc.ForgotPassword(ctx, "missing@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, svc.ResetPassword(ctx, &types.ResetPasswordRequest{Token: token, Password: "new-pw"}))

	_, _, err = svc.Login(ctx, &types.LoginRequest{Email: "eve@example.com", Password: "old-pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, &types.LoginRequest{Email: "eve@example.com", Password: "new-pw"})
	assert.NoError(t, err)

	// Reset tokens are single use.
	err = svc.ResetPassword(ctx, &types.ResetPasswordRequest{Token: token, Password: "another"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
