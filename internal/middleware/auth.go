package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"boatcatalog/internal/pkg/jwt"
	"boatcatalog/internal/pkg/response"
)

// JWTAuth validates the admin bearer token and stores its subject and role
// in the context. Browsers cannot set headers on a websocket handshake, so
// a token query parameter is accepted when the header is absent.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, code := bearerToken(c)
		if tokenStr == "" {
			logAuthFailure(c, code)
			message := "Authorization header is required"
			if code == "INVALID_AUTH_FORMAT" {
				message = "Authorization header must be 'Bearer <token>'"
			}
			response.Error(c, http.StatusUnauthorized, code, message)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(tokenStr)
		if err != nil {
			logAuthFailure(c, "INVALID_TOKEN")
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := strings.TrimSpace(c.Query("token")); q != "" {
			return q, ""
		}
		return "", "AUTH_HEADER_MISSING"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", "INVALID_AUTH_FORMAT"
	}
	return strings.TrimSpace(parts[1]), ""
}

func logAuthFailure(c *gin.Context, reason string) {
	log.Printf("admin_auth status=%d path=%s request_id=%s reason=%s", http.StatusUnauthorized, c.Request.URL.Path, requestID(c), reason)
}
