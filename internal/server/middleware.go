package server

import (
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vulnagent/internal/shared/logging"
)

// JSONMiddleware rejects bodies that are not declared as JSON.
func JSONMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPatch {
			if contentType := c.GetHeader("Content-Type"); contentType != "" {
				mediaType, _, err := mime.ParseMediaType(contentType)
				if err != nil || mediaType != "application/json" {
					c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, APIResponse{
						Success: false,
						Error:   "Content-Type must be application/json",
					})
					return
				}
			}
		}
		c.Next()
	}
}

// RequestLogger writes one line per request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	log := logging.OrNop(logger)
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.Info("%s %s -> %d (%s)", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(started))
	}
}
