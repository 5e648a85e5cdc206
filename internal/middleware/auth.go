package middleware

import (
	"errors"
	"net/http"
	"strings"

	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/redis"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// AuthMiddleware 校验 access token，并与 redis 中的登录态比对
func AuthMiddleware(jwt *pkg.JWTManager, tokens *redis.TokenRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		claims, err := jwt.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "invalid or expired token"})
			return
		}

		// redis校验是否是正确的token
		origin, err := tokens.GetUserToken(c.Request.Context(), claims.UserID)
		if errors.Is(err, redis.ErrRedisUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"code": 1, "msg": err.Error()})
			return
		}
		if err != nil || origin != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "account has been logged in elsewhere"})
			return
		}

		// 校验通过后更新过期时间
		if err := tokens.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": 1, "msg": err.Error()})
			return
		}

		// 注入 user_id
		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID 取出 AuthMiddleware 注入的用户 id
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
