package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// 上下文键（由 JWTAuth 中间件写入）
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxRole)
}

// MustGetPrincipal 提取当前操作人（user_id + role）
func MustGetPrincipal(c *gin.Context) (service.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Principal{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Principal{}, false
	}
	return service.Principal{UserID: userID, Role: role}, true
}

// MustGetToken 提取当前 Access Token 的 jti 与过期时间（登出时加入黑名单）
func MustGetToken(c *gin.Context) (string, time.Time, bool) {
	jti, ok := mustGetString(c, CtxTokenJTI)
	if !ok {
		return "", time.Time{}, false
	}
	v, exists := c.Get(CtxTokenExp)
	exp, isTime := v.(time.Time)
	if !exists || !isTime {
		response.Unauthorized(c, 10002, "Non autenticato")
		return "", time.Time{}, false
	}
	return jti, exp, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "Non autenticato")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "Non autenticato")
		return "", false
	}
	return s, true
}
