package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dealerdesk/platform/internal/policy"
	"github.com/dealerdesk/platform/internal/principal"
)

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// AuthRequired resolves the bearer token into a principal and stores it on
// the request context. Role and company come from the database, not the
// token, so a governance change applies on the next request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		p, err := s.identitySvc.Resolve(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(principal.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// Authorize evaluates the route policy against the resolved principal. The
// resource identifiers stay zero at this layer: checks that need the resource
// row, like the tenant and self rules, run in the services, which load the
// row inside the mutation transaction.
func (s *Server) Authorize(pol policy.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal.FromContext(c.Request.Context())

		if err := policy.Evaluate(p, pol, policy.Request{}); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
