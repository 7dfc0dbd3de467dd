package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/estatelane/estatelane/internal/authcontext"
	hierarchydomain "github.com/estatelane/estatelane/internal/hierarchy/domain"
	"github.com/estatelane/estatelane/internal/observability"
	"github.com/estatelane/estatelane/pkg/correlation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerRequestID  = "X-Request-ID"
	contextUserIDKey = "user_id"
)

// CorrelationMiddleware propagates an inbound request id or mints a fresh
// one, and echoes it back on the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if inbound := strings.TrimSpace(c.GetHeader(headerRequestID)); inbound != "" {
			ctx = correlation.ContextWithCorrelationID(ctx, inbound)
		}
		ctx, id := correlation.EnsureCorrelationID(ctx)

		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// MetricsMiddleware records request latency by route pattern, not raw path,
// so ids do not explode the label set.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequestDuration.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// AuthRequired verifies the bearer token, stamps the requester onto the
// request context, and seeds the per-request circle cache so repeated
// hierarchy resolutions within one request hit the directory only once.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := authcontext.WithUserID(c.Request.Context(), int64(userID))
		ctx = hierarchydomain.WithRequestCache(ctx)

		c.Set(contextUserIDKey, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimited throttles per authenticated user. Redis being down fails open
// with a warning; the limiter protects capacity, it is not a security gate.
func (s *Server) RateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		userID, ok := authcontext.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		allowed, err := s.limiter.AllowUser(c.Request.Context(), userID.String())
		if err != nil {
			s.log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
