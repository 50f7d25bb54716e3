package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// 自定义错误类型
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// 预定义错误
var (
	ErrInvalidRequest     = &APIError{Code: http.StatusBadRequest, Message: "Invalid request", Type: "invalid_request"}
	ErrUnauthorized       = &APIError{Code: http.StatusUnauthorized, Message: "Unauthorized", Type: "unauthorized"}
	ErrNotFound           = &APIError{Code: http.StatusNotFound, Message: "Not found", Type: "not_found"}
	ErrInternalServer     = &APIError{Code: http.StatusInternalServerError, Message: "Internal server error", Type: "internal_error"}
	ErrServiceUnavailable = &APIError{Code: http.StatusServiceUnavailable, Message: "Service unavailable", Type: "service_unavailable"}
	ErrTooManyRequests    = &APIError{Code: http.StatusTooManyRequests, Message: "Too many requests", Type: "rate_limit_error"}
)

// 错误创建函数
func NewInvalidRequestError(message string, err error) *APIError {
	return &APIError{
		Code:    http.StatusBadRequest,
		Message: message,
		Type:    "invalid_request",
		Err:     err,
	}
}

func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Type:    "unauthorized",
	}
}

func NewInternalServerError(message string, err error) *APIError {
	return &APIError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Type:    "internal_error",
		Err:     err,
	}
}

func NewServiceUnavailableError(message string, err error) *APIError {
	return &APIError{
		Code:    http.StatusServiceUnavailable,
		Message: message,
		Type:    "service_unavailable",
		Err:     err,
	}
}

func NewTooManyRequestsError(message string, err error) *APIError {
	return &APIError{
		Code:    http.StatusTooManyRequests,
		Message: message,
		Type:    "rate_limit_error",
		Err:     err,
	}
}

// 配置错误
var (
	ErrConfigLoad       = errors.New("failed to load configuration")
	ErrConfigValidation = errors.New("configuration validation failed")
	ErrInvalidPort      = errors.New("invalid port number")
	ErrNoSourceURL      = errors.New("at least one proxy source URL is required")
)

// 代理源错误
var (
	ErrFetchFailed     = errors.New("proxy source fetch failed")
	ErrSourceExhausted = errors.New("all proxy sources exhausted")
)

// 代理池错误
var (
	ErrNoProxyAvailable = errors.New("no proxy available in pool")
	ErrRefreshFailed    = errors.New("proxy pool refresh failed")
)
