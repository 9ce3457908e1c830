package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIP resolves the caller address the rate limiter keys on. The service
// sits behind an ingress in every deployed environment, so forwarding
// headers outrank the socket address.
func clientIP(c *gin.Context) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		value := strings.TrimSpace(c.GetHeader(header))
		if value == "" {
			continue
		}
		// X-Forwarded-For accumulates one entry per hop; the client is the
		// leftmost.
		if first, _, ok := strings.Cut(value, ","); ok {
			value = strings.TrimSpace(first)
		}
		if value != "" {
			return value
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests.
		return c.Request.RemoteAddr
	}
	return host
}
