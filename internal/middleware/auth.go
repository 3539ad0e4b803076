package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/security"
)

const claimsContextKey = "__auth_claims"

// TokenParser 校验访问令牌。
type TokenParser interface {
	Parse(raw string) (*security.Claims, error)
}

// Authenticate 要求请求携带有效的 Bearer 令牌。
func Authenticate(tokens TokenParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			WriteError(c, logger, apperr.Auth("No token provided"))
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			WriteError(c, logger, apperr.Auth("Invalid token"))
			return
		}
		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// OptionalAuth 解析令牌（若存在），无效令牌被忽略。
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if claims, err := tokens.Parse(raw); err == nil {
				c.Set(claimsContextKey, claims)
			}
		}
		c.Next()
	}
}

// RequireRole 在处理函数之前统一执行 security.RequireRole。
func RequireRole(role string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := security.RequireRole(ClaimsFrom(c), role); err != nil {
			WriteError(c, logger, err)
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the authenticated claims, or nil.
func ClaimsFrom(c *gin.Context) *security.Claims {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*security.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
