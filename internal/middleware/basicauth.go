package middleware

import (
	"net/http"
	"strings"

	"zhutan/internal/db"
	"zhutan/internal/models"
	"zhutan/internal/utils"

	"github.com/gin-gonic/gin"
)

// BasicAuthUserKey 存放通过 HTTP Basic 认证的用户名
const BasicAuthUserKey = "basic_auth_user"

// BasicAuth protects the configured path prefixes with HTTP Basic
// authentication against the users table. Challenges carry no-cache
// headers so proxies never serve a protected page to the next caller.
func BasicAuth(realm string, paths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !pathProtected(c.Request.URL.Path, paths) {
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if ok {
			var user models.User
			err := db.DB.Where("username = ?", username).First(&user).Error
			if err == nil && utils.CheckPasswordHash(password, user.Password) {
				c.Set(BasicAuthUserKey, user.Username)
				c.Next()
				return
			}
		}

		c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
		c.Header("Pragma", "no-cache")
		c.Header("Cache-control", "no-cache")
		c.Header("Expires", "Fri, 01 Jan 1999 00:00:00 GMT")
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func pathProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
