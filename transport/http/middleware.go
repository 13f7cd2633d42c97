package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/ports"
)

const subjectKey = "subject"

// AuthMiddleware creates middleware that validates session tokens.
// With a nil tokenizer callers are identified by their IP address.
func AuthMiddleware(tokenizer ports.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenizer == nil {
			c.Set(subjectKey, c.ClientIP())
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		subject, err := tokenizer.TokenToSubject(token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}

func subjectFrom(c *gin.Context) string {
	if subject := c.GetString(subjectKey); subject != "" {
		return subject
	}
	return c.ClientIP()
}

// LoggingMiddleware logs every request through logrus
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
		})

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
