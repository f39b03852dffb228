// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey 是用户 ID 在 Gin 上下文中的键。
const UserIDKey = "userID"

// UserIDHeader 是上游网关在认证通过后注入的用户标识请求头。
const UserIDHeader = "X-User-ID"

// UserIdentity 从请求头读取已认证的用户 ID 并存入上下文，缺失时返回 401。
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "error": "缺少用户身份"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}
