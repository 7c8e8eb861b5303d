package middleware

import (
	"context"
	"net/http"
	"strings"

	"agency-portal/internal/identity"
	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"
	"agency-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the identity provider's bearer token, refreshes
// the identity cache and stamps the identity on the request context.
func AuthMiddleware(verifier *identity.TokenVerifier, directory *identity.Directory, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		ident, err := verifier.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		if directory != nil {
			if err := directory.Remember(c.Request.Context(), ident); err != nil && log != nil {
				log.Errorf("identity cache refresh failed: %v", err)
			}
		}

		ctx := services.WithIdentity(c.Request.Context(), ident)
		ctx = context.WithValue(ctx, logger.UserIdKey, ident.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		// WebSocket clients cannot set headers; fall back to a query token.
		return c.Query("token")
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
