package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/identity"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"go.uber.org/zap"
)

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the display name and the session token
type LoginResponse struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// AuthHandler handles login and token validation routes
type AuthHandler struct {
	Verifier identity.Verifier
	Sessions *services.SessionRegistry
	Log      *zap.Logger
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Verifies the credentials with the identity provider and issues a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body LoginRequest
	if err := parseBody(c, &body); err != nil {
		return types.Unauthorized("auth.login")
	}

	profile, err := h.Verifier.Verify(c.UserContext(), body.Username, body.Password)
	if err != nil {
		h.Log.Info("login rejected", zap.String("username", body.Username), zap.Error(err))
		return types.Unauthorized("auth.login")
	}

	username := profile.Username
	if username == "" {
		username = body.Username
	}
	token, err := h.Sessions.Issue(c.UserContext(), services.Identity{
		Username: username,
		Name:     profile.Name,
		Email:    profile.Email,
	})
	if err != nil {
		h.Log.Error("failed to issue session", zap.String("username", username), zap.Error(err))
		return types.Internal("auth.issue")
	}

	return c.JSON(LoginResponse{Name: profile.Name, Token: token})
}

// Validate handles GET /api/auth/validate
// @Summary Validate a token
// @Tags Auth
// @Security BearerAuth
// @Success 200
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/validate [get]
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// ValidateOwner handles GET /api/auth/validateOwner?id=
// @Summary Validate project ownership
// @Tags Auth
// @Security BearerAuth
// @Param id query string true "Project ID"
// @Success 200
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/validateOwner [get]
func (h *AuthHandler) ValidateOwner(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// ValidateAdmin handles GET /api/auth/validate/admin
// @Summary Validate administrator privilege
// @Tags Auth
// @Security BearerAuth
// @Success 200
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/validate/admin [get]
func (h *AuthHandler) ValidateAdmin(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}
