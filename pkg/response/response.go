// Package response 统一 JSON 响应：{code, message, data}，code 为 0 表示成功
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// 跨模块共用的业务码，其余业务码由各 Handler 定义
const (
	CodeOK          = 0
	CodeRateLimited = 10004
	CodeTooLarge    = 10005
	CodeInternal    = 50000
	CodeSideEffect  = 50010
)

func write(c *gin.Context, status, code int, message string, data any) {
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

// ── 成功响应 ──

// OK 200
func OK(c *gin.Context, data any) {
	write(c, http.StatusOK, CodeOK, "success", data)
}

// Created 201
func Created(c *gin.Context, data any) {
	write(c, http.StatusCreated, CodeOK, "success", data)
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	write(c, httpStatus, code, message, nil)
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// TooLarge 413
func TooLarge(c *gin.Context) {
	Error(c, http.StatusRequestEntityTooLarge, CodeTooLarge, "Request body too large")
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later")
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

// SideEffectFailed 记录已保存但后续处理失败；data 为已保存的记录
func SideEffectFailed(c *gin.Context, message string, data any) {
	write(c, http.StatusInternalServerError, CodeSideEffect, message, data)
}
