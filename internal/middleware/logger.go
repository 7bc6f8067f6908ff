package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per HTTP request. Long-lived stream requests are
// logged when they open as well as when they close.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		streaming := strings.HasSuffix(c.Request.URL.Path, "/stream") || strings.HasSuffix(c.Request.URL.Path, "/ws")
		if streaming {
			log.Printf("[HTTP] %s %s %s stream opened", c.Request.Method, path, c.ClientIP())
		}

		c.Next()

		log.Printf("[HTTP] %s %s %s %d %v %s",
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
			c.Errors.String(),
		)
	}
}
