package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/assesshub/backoffice/internal/actorctx"
	"github.com/assesshub/backoffice/internal/rbac"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

const actorContextKey = "backoffice/actor"

// AuthRequired resolves the bearer token to a provisioned, active user and
// stashes the caller on both the gin context and the request context. Any
// failure along the way aborts with 401; a provisioned but inactive or
// deleted user never gets an actor.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ident, err := s.identity.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		usr, err := s.userSvc.GetByExternalID(c.Request.Context(), ident.Subject)
		if err != nil {
			if errors.Is(err, userdomain.ErrNotFound) {
				// Verified token but no provisioned user behind it.
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}
		if !usr.Active {
			AbortWithError(c, ErrForbidden)
			return
		}

		actor := rbac.Actor{
			ID:        usr.ID,
			Role:      usr.Role,
			CompanyID: usr.CompanyID,
		}

		c.Set(actorContextKey, actor)
		c.Request = c.Request.WithContext(actorctx.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// authorizeAction gates a route on the caller's role policy. Tenant scoping
// stays in the services; this only answers "may this role ever do this".
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// InviteTokenRateLimit throttles the public invitation endpoints per client
// address so tokens cannot be enumerated.
func (s *Server) InviteTokenRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.inviteLimiter == nil {
			c.Next()
			return
		}

		allowed, err := s.inviteLimiter.AllowTokenLookup(c.Request.Context(), c.ClientIP())
		if err != nil {
			// The limiter backend being down must not take the public
			// endpoints with it.
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

func currentActor(c *gin.Context) (rbac.Actor, bool) {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(rbac.Actor); ok && actor.ID != 0 {
			return actor, true
		}
	}
	return actorctx.ActorFromContext(c.Request.Context())
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
