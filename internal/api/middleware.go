package api

import (
	"net/http"
	"time"

	"github.com/estudorank/estudorank/internal/auth"
	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			switch e := err.(type) {
			case *errors.ValidationError:
				c.JSON(http.StatusBadRequest, gin.H{"error": e.Error()})
			case *errors.NotFoundError:
				c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
			case *errors.APIError:
				if e.StatusCode >= http.StatusInternalServerError {
					logger.LogError(e)
				}
				c.JSON(e.StatusCode, gin.H{"error": e.Message})
			case *errors.DatabaseError:
				logger.LogError(e)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			default:
				logger.LogError(e)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			c.Abort()
		}
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}

// RequireAuth accepts requests carrying a valid bearer token.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Error(&errors.APIError{StatusCode: http.StatusUnauthorized, Message: "Missing bearer token", Err: auth.ErrMissingToken})
			c.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			c.Error(&errors.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid or expired token", Err: err})
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := c.Get(claimsKey)
		if !ok {
			c.Error(&errors.APIError{StatusCode: http.StatusUnauthorized, Message: "Authentication required"})
			c.Abort()
			return
		}
		if !claims.(*auth.Claims).IsAdmin() {
			c.Error(&errors.APIError{StatusCode: http.StatusForbidden, Message: "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return &auth.Claims{}
}
