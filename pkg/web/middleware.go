package web

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"patientsurvey/pkg/auth"
)

const adminEmailKey = "adminEmail"

// requestLogger logs one line per request. Query strings carry patient data
// and are never logged.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[%s] %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// AdminAuthMiddleware requires a valid admin session token, taken from the
// admin cookie or a bearer Authorization header.
func AdminAuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := adminToken(c)
		if token == "" {
			Unauthorized(c, "Admin session required")
			c.Abort()
			return
		}

		session, ok := svc.CurrentSession(token)
		if !ok {
			Unauthorized(c, "Invalid or expired admin session")
			c.Abort()
			return
		}

		c.Set(adminEmailKey, session.Email)
		c.Next()
	}
}

func adminToken(c *gin.Context) string {
	if token, err := c.Cookie(AdminCookie); err == nil && token != "" {
		return token
	}
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}
