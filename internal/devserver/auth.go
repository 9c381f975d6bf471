package devserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/voxscribe/voxscribe/internal/common"
	"github.com/voxscribe/voxscribe/pkg/config"
	"github.com/voxscribe/voxscribe/pkg/types"
	"github.com/voxscribe/voxscribe/pkg/utils"
)

// ErrInvalidCredentials is returned for bad logins and bad reset tokens.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionExpired is returned when an access or refresh token no longer
// grants access.
var ErrSessionExpired = errors.New("session expired")

// AuthService handles accounts and session tokens for the dev server.
// Refresh tokens are allow-listed in the cache so logout actually revokes
// them; access tokens stay stateless.
type AuthService struct {
	db     *common.Database
	cache  common.Cache
	config *config.AuthConfig
}

// NewAuthService creates the authentication service.
func NewAuthService(db *common.Database, cache common.Cache, config *config.AuthConfig) *AuthService {
	return &AuthService{db: db, cache: cache, config: config}
}

// SessionTokens is one issued cookie pair.
type SessionTokens struct {
	Access  string
	Refresh string
}

// Register creates a new account with the default daily quota.
func (s *AuthService) Register(ctx context.Context, req *types.SignUpRequest) (*User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	var existing User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("an account with this email already exists")
	}

	hashed, err := utils.HashPassword(req.Password, s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:         req.Name,
		Email:        req.Email,
		Password:     hashed,
		Role:         "user",
		DailyMinutes: s.config.DailyMinutes,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("email", user.Email).Msg("account registered")
	return user, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req *types.LoginRequest) (*User, *SessionTokens, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

// Refresh exchanges a valid, allow-listed refresh token for a new access
// token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, jti, err := utils.ValidateSessionToken(refreshToken, s.config.JWTSecret, utils.TokenRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	if _, err := s.cache.GetString(ctx, refreshKey(jti)); err != nil {
		// Revoked by logout, or expired out of the cache.
		return "", ErrSessionExpired
	}

	access, _, err := utils.GenerateSessionToken(userID, utils.TokenAccess, s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return access, nil
}

// Logout revokes the refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	_, jti, err := utils.ValidateSessionToken(refreshToken, s.config.JWTSecret, utils.TokenRefresh)
	if err != nil {
		// Already unusable; nothing to revoke.
		return nil
	}
	return s.cache.Delete(ctx, refreshKey(jti))
}

// ValidateAccess resolves an access token to its user.
func (s *AuthService) ValidateAccess(ctx context.Context, accessToken string) (*User, error) {
	userID, _, err := utils.ValidateSessionToken(accessToken, s.config.JWTSecret, utils.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	var user User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrSessionExpired
	}
	return &user, nil
}

// ForgotPassword mints a reset token. A real backend would email it; the
// dev server logs it and hands it back so flows can be exercised locally.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		// Do not reveal whether the account exists.
		return "", nil
	}

	token, err := utils.GenerateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.cache.SetString(ctx, resetKey(token), user.ID.String(), s.config.AccessTokenTTL); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	log.Info().Str("email", email).Msg("password reset token issued")
	return token, nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error {
	userIDStr, err := s.cache.GetString(ctx, resetKey(req.Token))
	if err != nil {
		return ErrInvalidCredentials
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.Password, s.config.BCryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.cache.Delete(ctx, resetKey(req.Token))
}

func (s *AuthService) issueTokens(ctx context.Context, userID uuid.UUID) (*SessionTokens, error) {
	access, _, err := utils.GenerateSessionToken(userID, utils.TokenAccess, s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, jti, err := utils.GenerateSessionToken(userID, utils.TokenRefresh, s.config.JWTSecret, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.cache.SetString(ctx, refreshKey(jti), userID.String(), s.config.RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to allow-list refresh token: %w", err)
	}
	return &SessionTokens{Access: access, Refresh: refresh}, nil
}

func refreshKey(jti string) string {
	return "refresh:" + jti
}

func resetKey(token string) string {
	return "reset:" + token
}

// publicUser strips private fields for API responses.
func publicUser(u *User) types.User {
	return types.User{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
