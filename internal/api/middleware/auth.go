package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/pkg/jwt"
	"github.com/leonard05717/appointment/pkg/response"
)

// TokenChecker 查询 Token 是否已注销
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token；
// EventSource 无法设置请求头，事件流可改用 ?access_token= 传递。
// blacklist 为 nil 时不检查注销状态，查询出错时放行。
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, 10002, "Missing or malformed Authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token is invalid or expired")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "Invalid token type")
			c.Abort()
			return
		}

		role, err := model.ParseRole(claims.Role)
		if err != nil {
			response.Unauthorized(c, 10002, "Token is invalid or expired")
			c.Abort()
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token has been revoked")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文
		c.Set("user_id", claims.UserID)
		c.Set("role", role)
		c.Set("claims", claims)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("access_token"); q != "" {
			return q, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := currentRole(c)
		if !ok {
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "Insufficient permissions")
		c.Abort()
	}
}

// RequireCap 按能力授权，比 RoleAuth 更细：例如学生账号维护只开放给超级管理员
func RequireCap(capability model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := currentRole(c)
		if !ok {
			return
		}

		if !userRole.Can(capability) {
			response.Forbidden(c, 10003, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

func currentRole(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "Not authenticated")
		c.Abort()
		return "", false
	}
	role, ok := v.(model.Role)
	if !ok {
		response.Unauthorized(c, 10002, "Not authenticated")
		c.Abort()
		return "", false
	}
	return role, true
}
