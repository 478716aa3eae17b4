package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// memberIDHeader carries the acting member's id, set by the upstream
// authenticating proxy. This service never authenticates; it only requires
// an explicit actor for every member-facing operation.
const memberIDHeader = "X-Member-ID"

// RequestID assigns a uuid to each request unless the caller supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs one line per request with latency and status.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get("requestID")
		log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": requestID,
		}).Info("request")
	}
}

// MemberIdentity parses the acting member id header into the gin context.
// Handlers reject requests where no actor was identified.
func MemberIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(memberIDHeader))
		if raw != "" {
			if id, errParse := strconv.ParseUint(raw, 10, 64); errParse == nil && id > 0 {
				c.Set("userID", id)
			}
		}
		c.Next()
	}
}
