// Package middleware holds the gin middleware used by the HTTP server.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appidentity "github.com/mediavault/backend/internal/application/identity"
	"github.com/mediavault/backend/internal/infrastructure/logger"
	gqlapi "github.com/mediavault/backend/internal/interfaces/graphql"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Principal validates a bearer token when one is presented and attaches the
// resulting principal to the request context. Requests without a usable token
// proceed anonymously and the resolvers decide what requires authentication.
//
// The raw token is attached even when validation fails: refreshToken accepts
// tokens that expired within the refresh grace window, which full validation
// rejects.
func Principal(authService *appidentity.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		ctx := gqlapi.WithRawToken(c.Request.Context(), token)

		user, claims, err := authService.Authenticate(ctx, token)
		if err != nil {
			if log != nil {
				log.Debug("bearer token not usable as access token",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
			}
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		ctx = gqlapi.WithPrincipal(ctx, &gqlapi.Principal{
			User:     user,
			Claims:   claims,
			RawToken: token,
		})
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), user.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, or "".
func bearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" || !strings.HasPrefix(header, BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, BearerPrefix)
}
