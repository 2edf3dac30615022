package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/api/dto"
	"github.com/example/sales-desk/internal/auth"
	"github.com/example/sales-desk/internal/domain"
)

// CookieName is the cookie browsers send the access token in.
const CookieName = "access_token"

// Context keys set by AuthRequired.
const (
	CtxClaims = "claims"
	CtxActor  = "actor"
)

// UserLookup resolves the account behind a token.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// ExtractToken reads the access token from the cookie first and from a
// Bearer Authorization header second.
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	token, _ := ExtractBearerToken(c.GetHeader("Authorization"))
	return token
}

// ExtractBearerToken returns the token of a "Bearer <token>" header value.
func ExtractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authz), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	return t, t != ""
}

// AuthRequired validates the access token, loads the user it names and stores
// both in the context. A token whose user no longer exists is rejected, and
// the stored role wins over the one in the token.
func AuthRequired(jwtService *auth.JWTService, users UserLookup, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing access token"))
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Info("token for unknown user", zap.String("user_id", claims.UserID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("user no longer exists"))
			return
		case err != nil:
			log.Error("failed to load token user", zap.String("user_id", claims.UserID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewUnavailableError("could not verify user"))
			return
		}

		c.Set(CtxClaims, claims)
		c.Set(CtxActor, user.Public())
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles. It must run
// after AuthRequired.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewForbiddenError("insufficient role"))
	}
}

// Claims returns the claims set by AuthRequired.
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// Actor returns the signed-in user of the request as loaded by AuthRequired.
func Actor(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(CtxActor)
	if !ok {
		return domain.User{}, false
	}
	actor, ok := v.(domain.User)
	return actor, ok
}
