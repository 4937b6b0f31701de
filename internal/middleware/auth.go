package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shortlink-platform/internal/service"
	auth "shortlink-platform/pkg/jwt"
)

const (
	// ContextUserID gin 上下文中请求者 ID 的键
	ContextUserID = "user_id"
	// ContextRole gin 上下文中请求者角色的键
	ContextRole = "role"
)

// AuthMiddleware JWT认证中间件，令牌缺失或无效时拒绝请求
func AuthMiddleware(jwtManager *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwtManager)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少或无效的认证令牌"})
			c.Abort()
			return
		}

		// 将用户信息存入上下文
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// OptionalAuthMiddleware 可选认证：带有效令牌时注入身份，否则按匿名处理。
// 缩短接口对匿名用户开放，但登录用户创建的链接要归到其名下。
func OptionalAuthMiddleware(jwtManager *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c, jwtManager); ok {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextRole, claims.Role)
		}
		c.Next()
	}
}

// RequesterFrom 从 gin 上下文恢复请求者身份，第二个返回值表示是否已认证
func RequesterFrom(c *gin.Context) (service.Requester, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return service.Requester{}, false
	}
	role, _ := c.Get(ContextRole)
	roleStr, _ := role.(string)
	return service.Requester{UserID: userID.(string), Role: roleStr}, true
}

// bearerClaims 提取并校验 Bearer 令牌
func bearerClaims(c *gin.Context, jwtManager *auth.TokenManager) (*auth.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}
