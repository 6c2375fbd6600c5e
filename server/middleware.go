package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/auth"
	"github.com/example/textbookhub/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const claimsKey = "auth_claims"

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// authRequired resolves the bearer token into claims and stores them on the
// request context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   apperr.New(apperr.CodeInvalidCredential, "missing bearer token"),
			})
			return
		}

		claims, err := s.tokens.Verify(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			appErr := apperr.From(err)
			c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"success": false, "error": appErr})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (s *Server) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   apperr.New(apperr.CodeAccessDenied, "administrator role required"),
			})
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}

// rateLimit applies a per-client token bucket to credential endpoints.
func (s *Server) rateLimit() gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(rate.Every(time.Second), 10)
			limiters[key] = limiter
		}
		return limiter
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   apperr.New(apperr.CodeValidation, "too many requests"),
			})
			return
		}
		c.Next()
	}
}
