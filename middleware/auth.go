package middleware

import (
	"net/http"
	"strings"

	"builderhub/utils"

	"github.com/gin-gonic/gin"
)

// ContextClientIDKey is where the resolved client identity lives on the
// gin context. Absent means the request is anonymous.
const ContextClientIDKey = "clientID"

// OptionalAuthMiddleware resolves the request identity when a Bearer token
// is present and valid, and lets the request through anonymously otherwise.
// Booking creation deliberately accepts both.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if clientID, ok := bearerSubject(c); ok {
			c.Set(ContextClientIDKey, clientID)
		}
		c.Next()
	}
}

// RequireAuthMiddleware rejects requests without a valid Bearer token.
func RequireAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := bearerSubject(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}
		c.Set(ContextClientIDKey, clientID)
		c.Next()
	}
}

// ClientID returns the authenticated client id, or "" for anonymous
// requests.
func ClientID(c *gin.Context) string {
	if v, exists := c.Get(ContextClientIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func bearerSubject(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return "", false
	}

	clientID, err := utils.ExtractIDFromToken(tokenString)
	if err != nil || clientID == "" {
		return "", false
	}
	return clientID, true
}
