package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"suzu_discount/internal/pkg/config"
	"suzu_discount/pkg/response"
	"suzu_discount/pkg/utils"
)

// AdminAuthMiddleware 管理端会话令牌校验
// admin.require_token 关闭时直接放行，保持与旧版前端的兼容
func AdminAuthMiddleware(cfg config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.RequireToken {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseAdminToken(cfg.TokenSecret, parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("adminRole", claims.Role)
		c.Next()
	}
}
