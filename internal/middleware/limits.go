package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit applies a fixed-window per-client-address limit, mounted on the
// API routes only.
func RateLimit(limit int64, window time.Duration) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: window,
		Limit:  limit,
	}
	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate))
}

// BodyLimit caps the request body size so oversized payloads fail instead of
// being buffered.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
