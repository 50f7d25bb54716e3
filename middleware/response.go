package middleware

import (
	"proxy2api/log"
	"proxy2api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 统一错误响应包装
// 仅用于认证失败和处理器恐慌，代理池的业务失败走 models.ProxyResponse
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"` // HTTP状态码
}

// SendErrorResponse 发送统一格式的错误响应并终止后续处理
func SendErrorResponse(c *gin.Context, statusCode int, errorType string, message string) {
	log.Error("请求失败: %s %s -> %d (%s: %s)",
		c.Request.Method, c.Request.URL.Path, statusCode, errorType, message)

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Type:    errorType,
			Message: message,
			Code:    statusCode,
		},
	})
}

// SendAPIError 发送APIError类型的错误响应
func SendAPIError(c *gin.Context, apiErr *errors.APIError) {
	SendErrorResponse(c, apiErr.Code, apiErr.Type, apiErr.Message)
}
