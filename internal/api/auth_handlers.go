package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/api/dto"
	"github.com/example/sales-desk/internal/api/middleware"
	"github.com/example/sales-desk/internal/auth"
	"github.com/example/sales-desk/internal/catalog"
)

// AuthHandlers handles sign-in and the current user.
type AuthHandlers struct {
	authenticator *auth.Authenticator
	jwtService    *auth.JWTService
	catalog       *catalog.Service
	log           *zap.Logger
}

func NewAuthHandlers(authenticator *auth.Authenticator, jwtService *auth.JWTService, catalogSvc *catalog.Service, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authenticator: authenticator,
		jwtService:    jwtService,
		catalog:       catalogSvc,
		log:           log,
	}
}

// Login checks the credentials and issues an access token, both in the body
// and as an HttpOnly cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	user, err := h.authenticator.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateAccessToken(user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	h.log.Info("user signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	c.JSON(http.StatusOK, dto.LoginResponse{User: user, AccessToken: token, ExpiresAt: expiresAt})
}

// Logout clears the session cookie. Issued tokens stay valid until they
// expire.
func (h *AuthHandlers) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "logout successful"})
}

// Me returns the signed-in user as currently stored.
func (h *AuthHandlers) Me(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
		return
	}

	user, err := h.catalog.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
