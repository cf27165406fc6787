package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/pkg/jwt"
	"github.com/leonard05717/appointment/pkg/response"
)

// 上下文键，由 JWT 中间件写入
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxClaims = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "Not authenticated")
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		response.Unauthorized(c, 10002, "Not authenticated")
		return 0, false
	}
	return id, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get(CtxRole)
	if !exists {
		response.Unauthorized(c, 10002, "Not authenticated")
		return "", false
	}
	r, ok := v.(model.Role)
	if !ok || r == "" {
		response.Unauthorized(c, 10002, "Not authenticated")
		return "", false
	}
	return r, true
}

// MustGetClaims 提取当前请求的令牌声明
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(CtxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "Not authenticated")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "Not authenticated")
		return nil, false
	}
	return claims, true
}

// parseID 解析路径参数 :id
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
