package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/registry"
)

const requestIDKey = "request_id"

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
			return
		}
		s.logger.Info("request", fields...)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(requestIDKey)),
				)
				s.fail(c, fmt.Errorf("panic: %v", rec))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// callerFrom reads the caller identity headers. A malformed company id is a
// bad request.
func callerFrom(c *gin.Context) (registry.Caller, error) {
	var caller registry.Caller
	if raw := strings.TrimSpace(c.GetHeader(HeaderCompanyID)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return caller, badRequest("%s must be a positive integer", HeaderCompanyID)
		}
		caller.CompanyID = &id
	}
	if privileged, err := strconv.ParseBool(strings.TrimSpace(c.GetHeader(HeaderPrivileged))); err == nil {
		caller.Privileged = privileged
	}
	return caller, nil
}
