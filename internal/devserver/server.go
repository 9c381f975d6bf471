package devserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/voxscribe/voxscribe/pkg/config"
	"github.com/voxscribe/voxscribe/pkg/types"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Server exposes the transcription API over HTTP with the same routes,
// envelope format and cookie auth the hosted service uses.
type Server struct {
	engine        *gin.Engine
	auth          *AuthService
	transcription *TranscriptionService
	authCfg       *config.AuthConfig
}

// NewServer wires the services into a gin engine.
func NewServer(auth *AuthService, transcription *TranscriptionService, authCfg *config.AuthConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:        engine,
		auth:          auth,
		transcription: transcription,
		authCfg:       authCfg,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/sign-up", s.handleSignUp)
		auth.POST("/login", s.handleLogin)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", s.handleLogout)
		auth.POST("/forgot-password", s.handleForgotPassword)
		auth.POST("/reset-password", s.handleResetPassword)
		auth.GET("/profile", s.requireAuth, s.handleProfile)
	}

	tr := api.Group("/transcription", s.requireAuth)
	{
		tr.GET("/usage", s.handleUsage)
		tr.GET("/usage/stats", s.handleUsageStats)
		tr.GET("/search", s.handleSearch)
		tr.GET("/job/:jobID", s.handleJobDetail)
		tr.POST("/presign", s.handlePresign)
		tr.POST("/queue-job", s.handleQueueJob)
		tr.DELETE("/:jobID", s.handleDeleteJob)
	}

	// Presigned object endpoints live outside the API prefix, mirroring a
	// standalone object store.
	s.engine.PUT("/storage/*key", s.handleStoragePut)
	s.engine.GET("/storage/*key", s.handleStorageGet)
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, types.APIResponse{
		Status:  status,
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondPage(c *gin.Context, message string, data any, page *types.Pagination) {
	c.JSON(http.StatusOK, types.APIResponse{
		Status:     http.StatusOK,
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: page,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, types.APIResponse{
		Status:  status,
		Success: false,
		Error:   &types.APIError{Message: message, Status: status},
	})
}

// requireAuth resolves the access token cookie to a user and aborts with
// 401 when it is missing or no longer valid.
func (s *Server) requireAuth(c *gin.Context) {
	token, err := c.Cookie(accessCookie)
	if err != nil || token == "" {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		c.Abort()
		return
	}

	user, err := s.auth.ValidateAccess(c.Request.Context(), token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		c.Abort()
		return
	}

	c.Set("user", user)
	c.Next()
}

func currentUser(c *gin.Context) *User {
	return c.MustGet("user").(*User)
}

func (s *Server) setSessionCookies(c *gin.Context, tokens *SessionTokens) {
	c.SetCookie(accessCookie, tokens.Access, int(s.authCfg.AccessTokenTTL.Seconds()), "/", "", false, true)
	c.SetCookie(refreshCookie, tokens.Refresh, int(s.authCfg.RefreshTokenTTL.Seconds()), "/", "", false, true)
}

func clearSessionCookies(c *gin.Context) {
	c.SetCookie(accessCookie, "", -1, "/", "", false, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req types.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.auth.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	respond(c, http.StatusCreated, "Account created", gin.H{"user": publicUser(user)})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, tokens, err := s.auth.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Error().Err(err).Msg("login failed")
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	s.setSessionCookies(c, tokens)
	respond(c, http.StatusOK, "Logged in", gin.H{"user": publicUser(user)})
}

func (s *Server) handleRefresh(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		fail(c, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	access, err := s.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		clearSessionCookies(c)
		fail(c, http.StatusUnauthorized, "Session expired, please log in again")
		return
	}

	c.SetCookie(accessCookie, access, int(s.authCfg.AccessTokenTTL.Seconds()), "/", "", false, true)
	respond(c, http.StatusOK, "Token refreshed", nil)
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		if err := s.auth.Logout(c.Request.Context(), token); err != nil {
			log.Warn().Err(err).Msg("failed to revoke refresh token")
		}
	}
	clearSessionCookies(c)
	respond(c, http.StatusOK, "Logged out", nil)
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req types.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The response never reveals whether the address is registered. The
	// reset token is logged instead of mailed; this server has no SMTP.
	token, err := s.auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		log.Error().Err(err).Msg("forgot-password failed")
		fail(c, http.StatusInternalServerError, "Could not process request")
		return
	}
	if token != "" {
		log.Info().Str("email", req.Email).Str("token", token).Msg("password reset token issued")
	}

	respond(c, http.StatusOK, "If the address is registered, a reset link has been sent", nil)
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req types.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.auth.ResetPassword(c.Request.Context(), &req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, http.StatusOK, "Password updated", nil)
}

func (s *Server) handleProfile(c *gin.Context) {
	user := currentUser(c)
	profile := types.Profile{
		User: publicUser(user),
		Subscription: &types.Subscription{
			PlanName:      "Developer",
			MinutesPerDay: user.DailyMinutes,
		},
	}
	respond(c, http.StatusOK, "Profile", profile)
}

func (s *Server) handleUsage(c *gin.Context) {
	usage, err := s.transcription.Usage(c.Request.Context(), currentUser(c))
	if err != nil {
		log.Error().Err(err).Msg("usage lookup failed")
		fail(c, http.StatusInternalServerError, "Could not load usage")
		return
	}
	respond(c, http.StatusOK, "Usage", usage)
}

func (s *Server) handleUsageStats(c *gin.Context) {
	stats, err := s.transcription.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		log.Error().Err(err).Msg("usage stats failed")
		fail(c, http.StatusInternalServerError, "Could not load usage stats")
		return
	}
	respond(c, http.StatusOK, "Usage stats", stats)
}

func (s *Server) handleSearch(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	query := c.Query("query")

	jobs, pagination, err := s.transcription.Search(c.Request.Context(), currentUser(c), page, limit, query)
	if err != nil {
		log.Error().Err(err).Msg("job search failed")
		fail(c, http.StatusInternalServerError, "Could not search jobs")
		return
	}
	respondPage(c, "Jobs", jobs, pagination)
}

func (s *Server) handleJobDetail(c *gin.Context) {
	detail, err := s.transcription.Detail(c.Request.Context(), currentUser(c), c.Param("jobID"))
	if err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	respond(c, http.StatusOK, "Job", detail)
}

func (s *Server) handlePresign(c *gin.Context) {
	var req types.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.transcription.Presign(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, http.StatusOK, "Upload URL created", resp)
}

func (s *Server) handleQueueJob(c *gin.Context) {
	var req types.QueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.transcription.QueueJob(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, http.StatusCreated, result.Message, result)
}

func (s *Server) handleDeleteJob(c *gin.Context) {
	if err := s.transcription.Delete(c.Request.Context(), currentUser(c), c.Param("jobID")); err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	respond(c, http.StatusOK, "Job deleted", nil)
}

func storageKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// handleStoragePut accepts a presigned upload. It speaks plain HTTP rather
// than the API envelope, matching object store semantics.
func (s *Server) handleStoragePut(c *gin.Context) {
	key := storageKey(c)
	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil || !verifySignature(s.authCfg.JWTSecret, key, expires, c.Query("signature")) {
		c.String(http.StatusForbidden, "signature mismatch or expired URL")
		return
	}

	err = s.transcription.StoreUpload(c.Request.Context(), key, c.ContentType(), c.Request.Body)
	if err != nil {
		c.String(http.StatusForbidden, err.Error())
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleStorageGet(c *gin.Context) {
	key := storageKey(c)
	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil || !verifySignature(s.authCfg.JWTSecret, key, expires, c.Query("signature")) {
		c.String(http.StatusForbidden, "signature mismatch or expired URL")
		return
	}

	content, err := s.transcription.blobs.Retrieve(c.Request.Context(), key)
	if err != nil {
		c.String(http.StatusNotFound, "object not found")
		return
	}
	defer content.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, content); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("storage download interrupted")
	}
}
