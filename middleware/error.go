package middleware

import (
	"net/http"
	"proxy2api/log"
	"proxy2api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorMiddleware 恐慌恢复中间件
// 业务失败由各处理器以 JSON 返回，走到这里的只有未预期的 panic
func ErrorMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if apiErr, ok := recovered.(*errors.APIError); ok {
			log.Error("API error on %s %s: %v", c.Request.Method, c.Request.URL.Path, apiErr)
			SendAPIError(c, apiErr)
			return
		}

		log.Error("Panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		SendErrorResponse(c, http.StatusInternalServerError, "internal_error", "Internal server error")
	})
}
