package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/pkg/auth"
	"github.com/nsxzhou1114/bookmarks-api/pkg/response"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
	ctxTokenID  = "tokenID"
	ctxToken    = "token"
)

// bearerToken 从 Authorization 头中取出令牌
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.New("请先登录")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", errors.New("Authorization格式错误")
	}
	return parts[1], nil
}

func setClaims(c *gin.Context, claims *auth.Claims, token string) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUserRole, claims.Role)
	c.Set(ctxTokenID, claims.TokenID)
	c.Set(ctxToken, token)
}

// JWTAuth JWT认证中间件
func JWTAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			response.Unauthorized(c, err.Error(), nil)
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "无效的令牌", err)
			c.Abort()
			return
		}
		if claims.Type != auth.AccessToken {
			response.Unauthorized(c, "使用了错误类型的令牌", errors.New("需要访问令牌"))
			c.Abort()
			return
		}

		// 令牌将在缓冲时间内过期时提示客户端刷新
		if tokens.ExpiresSoon(claims) {
			c.Header("X-Token-Expire-Soon", "true")
		}
		setClaims(c, claims, token)
		c.Next()
	}
}

// RefreshAuth 用于刷新访问令牌的中间件
func RefreshAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			response.Unauthorized(c, "请提供刷新令牌", err)
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "无效的刷新令牌", err)
			c.Abort()
			return
		}
		if claims.Type != auth.RefreshToken {
			response.Unauthorized(c, "使用了错误类型的令牌", errors.New("需要刷新令牌"))
			c.Abort()
			return
		}

		if time.Until(time.Unix(claims.ExpiresAt, 0)) < 24*time.Hour {
			c.Header("X-Refresh-Token-Expire-Soon", "true")
		}
		setClaims(c, claims, token)
		c.Next()
	}
}

// OptionalAuth 可选认证，令牌无效时按匿名用户处理
func OptionalAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.Next()
			return
		}
		claims, err := tokens.ParseToken(c.Request.Context(), token)
		if err != nil || claims.Type != auth.AccessToken {
			c.Next()
			return
		}
		setClaims(c, claims, token)
		c.Next()
	}
}

// GetUserID 从上下文中获取用户ID
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetToken 从上下文中获取原始令牌
func GetToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}
