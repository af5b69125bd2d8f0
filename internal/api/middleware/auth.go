package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/jwt"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
)

// 上下文键，与 handler.Ctx* 一致
const (
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxTokenJTI = "token_jti"
	ctxTokenExp = "token_exp"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 再检查 Token 黑名单（登出）与账号吊销（删除账号）；rdb 为 nil 或出错时降级放行
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, 10002, "Intestazione Authorization mancante")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Abort(c, http.StatusUnauthorized, 10002, "Intestazione Authorization non valida")
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, 10002, "Token non valido o scaduto")
			return
		}

		if claims.TokenType != "access" {
			response.Abort(c, http.StatusUnauthorized, 10002, "Tipo di token non valido")
			return
		}

		ctx := c.Request.Context()
		if claims.ID != "" {
			blacklisted, err := rdb.IsBlacklisted(ctx, claims.ID)
			if err != nil {
				logger.Warn("检查 Token 黑名单失败，降级放行", zap.Error(err))
			} else if blacklisted {
				response.Abort(c, http.StatusUnauthorized, 11003, "Token revocato, effettua di nuovo l'accesso")
				return
			}
		}
		revoked, err := rdb.IsUserRevoked(ctx, claims.UserID)
		if err != nil {
			logger.Warn("检查账号吊销失败，降级放行", zap.Error(err))
		} else if revoked {
			response.Abort(c, http.StatusUnauthorized, 11003, "Account disattivato")
			return
		}

		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}

		// 将用户信息注入上下文
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxTokenJTI, claims.ID)
		c.Set(ctxTokenExp, exp)

		c.Next()
	}
}

// Authorize 操作权限中间件
// 按角色判断是否允许执行 action；接待厅范围由 Service 层校验
func Authorize(action service.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			response.Abort(c, http.StatusUnauthorized, 10002, "Non autenticato")
			return
		}

		userRole, _ := role.(string)
		if !service.Allowed(userRole, action) {
			response.Abort(c, http.StatusForbidden, 10003, "Accesso negato")
			return
		}

		c.Next()
	}
}
