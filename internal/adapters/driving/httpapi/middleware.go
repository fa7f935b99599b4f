package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/apeko/appraisal-rag/internal/logger"
	"github.com/apeko/appraisal-rag/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestIDMiddleware reuses the caller's request id or assigns a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// loggerMiddleware logs each request once it completes.
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		id := c.GetString(requestIDKey)
		if status >= 500 {
			logger.Warn("%s %s %d %v request_id=%s", c.Request.Method, path, status, latency, id)
			return
		}
		logger.Info("%s %s %d %v request_id=%s", c.Request.Method, path, status, latency, id)
	}
}

// metricsMiddleware records request counts and latency by route template.
func metricsMiddleware(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.HTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
