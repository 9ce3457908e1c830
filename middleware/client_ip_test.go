package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "forwarded chain uses leftmost", xff: "203.0.113.7, 10.0.0.2, 10.0.0.1", remote: "10.0.0.1:443", want: "203.0.113.7"},
		{name: "forwarded single entry", xff: "203.0.113.7", remote: "10.0.0.1:443", want: "203.0.113.7"},
		{name: "forwarded outranks real ip", xff: "203.0.113.7", xri: "198.51.100.4", remote: "10.0.0.1:443", want: "203.0.113.7"},
		{name: "real ip fallback", xri: "198.51.100.4", remote: "10.0.0.1:443", want: "198.51.100.4"},
		{name: "socket address port stripped", remote: "192.0.2.9:51234", want: "192.0.2.9"},
		{name: "socket address without port", remote: "192.0.2.9", want: "192.0.2.9"},
		{name: "blank forwarded header ignored", xff: "   ", remote: "192.0.2.9:80", want: "192.0.2.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = tc.remote
			if tc.xff != "" {
				c.Request.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				c.Request.Header.Set("X-Real-IP", tc.xri)
			}
			assert.Equal(t, tc.want, clientIP(c))
		})
	}
}
