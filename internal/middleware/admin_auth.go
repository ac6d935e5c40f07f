// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"edubot/pkg/log"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminPasswordHeader 携带管理员共享密码。
const AdminPasswordHeader = "x-admin-password"

// AdminAuthMiddleware 检查请求是否携带正确的管理员密码。
// 优先读取请求头，缺省时读取 JSON 请求体中的 "password" 字段。
// secret 可以是明文或 bcrypt 哈希。
func AdminAuthMiddleware(secret string) gin.HandlerFunc {
	check := secretMatcher(secret)
	return func(c *gin.Context) {
		supplied := c.GetHeader(AdminPasswordHeader)
		if supplied == "" {
			supplied = passwordFromBody(c)
		}
		if supplied == "" || !check(supplied) {
			log.Warnw("Admin access denied", "path", c.Request.URL.Path, "clientIP", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acesso negado: senha de administrador inválida"})
			return
		}
		c.Next()
	}
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func secretMatcher(secret string) func(string) bool {
	if isBcryptHash(secret) {
		hash := []byte(secret)
		return func(supplied string) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte(supplied)) == nil
		}
	}
	want := []byte(secret)
	return func(supplied string) bool {
		return len(want) > 0 && subtle.ConstantTimeCompare(want, []byte(supplied)) == 1
	}
}

// passwordFromBody 读取 JSON 请求体后将其放回，供后续 handler 使用。
func passwordFromBody(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.Method == http.MethodGet {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	var body struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Password
}
