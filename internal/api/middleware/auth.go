package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/pkg/jwt"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// bearerClaims 解析 Authorization 头，失败时返回提示信息
func bearerClaims(c *gin.Context, jwtSecret string) (claims *jwt.Claims, msg string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "请提供认证信息"
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, "认证格式错误"
	}

	claims, err := jwt.ParseToken(tokenString, jwtSecret)
	if err != nil {
		return nil, "认证失败或已过期"
	}
	return claims, ""
}

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, msg := bearerClaims(c, jwtSecret)
		if claims == nil {
			response.AuthError(c, msg)
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _ := bearerClaims(c, jwtSecret); claims != nil {
			c.Set(UserIDKey, claims.UserID)
			c.Set(RoleKey, claims.Role)
		}
		c.Next()
	}
}

// AdminOnly 管理员权限，需挂在 Auth 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != model.RoleAdmin {
			response.PermissionError(c, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetRole 从上下文获取角色，未登录时为空
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
