package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

const refreshCookieName = "refresh_token"

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cfg     *config.AuthConfig
}

// NewAuthHandler 创建 AuthHandler，cfg 为 nil 时 Cookie 使用默认有效期
func NewAuthHandler(authSvc service.AuthService, cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cfg: cfg}
}

// setRefreshCookie 同时以 HttpOnly Cookie 下发 Refresh Token（浏览器端无需保存）
func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, rememberMe bool) {
	ttl := 24 * time.Hour
	if h.cfg != nil {
		ttl = h.cfg.RefreshTokenTTLDefault
		if rememberMe {
			ttl = h.cfg.RefreshTokenTTLRemember
		}
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(ttl.Seconds()), "/api/v1/auth", "", c.Request.TLS != nil, true)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, req.RememberMe)
	response.OK(c, result)
}

// RefreshToken 刷新 Token，请求体优先，其次读取 Cookie
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookieName)
	}
	if token == "" {
		response.BadRequest(c, 10001, "refresh_token mancante")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), token)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, false)
	response.OK(c, result)
}

// Logout 用户登出，当前 Access Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp, ok := MustGetToken(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		response.InternalError(c)
		return
	}

	c.SetCookie(refreshCookieName, "", -1, "/api/v1/auth", "", c.Request.TLS != nil, true)
	response.OK(c, nil)
}

// GetCurrentUser 当前用户及可见接待厅
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, result)
}

// Register 创建账号（仅管理员）
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.Created(c, result)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, 11001, "Email o password non corretti")
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, 11002, "Token non valido o scaduto")
	case errors.Is(err, service.ErrTokenRevoked):
		response.Unauthorized(c, 11003, "Token revocato, effettua di nuovo l'accesso")
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 11004, "Email già registrata")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11005, "Utente non trovato")
	default:
		response.InternalError(c)
	}
}
