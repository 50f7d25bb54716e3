package middleware

import (
	"proxy2api/config"
	"proxy2api/pkg/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// 无需认证的路径
var openPaths = map[string]bool{
	"/":       true,
	"/health": true,
}

// AuthMiddleware 认证中间件
// 支持 X-API-Key 头和 Authorization Bearer 两种携带方式
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled() || openPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		apiKey := cfg.ApiKey()

		// 优先检查 X-API-Key 头
		if key := c.GetHeader("X-API-Key"); key != "" {
			if key != apiKey {
				SendAPIError(c, errors.NewUnauthorizedError("Invalid API key"))
				return
			}
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			SendAPIError(c, errors.NewUnauthorizedError("Missing API key"))
			return
		}

		// 移除Bearer前缀
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token != apiKey {
			SendAPIError(c, errors.NewUnauthorizedError("Invalid API key"))
			return
		}

		c.Next()
	}
}
