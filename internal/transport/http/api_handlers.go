package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/auth"
	"github.com/vovakirdan/shopdesk-server/internal/service/accounts"
)

// APIHandlers provides HTTP handlers for authentication endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginRequest represents the admin login request body.
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse represents the registration response body.
type RegisterResponse struct {
	Message string            `json:"message"`
	User    accounts.UserView `json:"user"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string             `json:"token"`
	User  *accounts.UserView `json:"user,omitempty"`
}

// Register handles user registration.
// POST /api/users/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		badRequest(c, "email and password are required")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "failed to register user")
		return
	}

	h.log.Info().Str("user_id", user.ID).Msg("user registered successfully")
	c.JSON(http.StatusCreated, RegisterResponse{Message: "user registered", User: accounts.NewUserView(user)})
}

// Login handles user login.
// POST /api/users/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		badRequest(c, "email and password are required")
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "failed to login user")
		return
	}

	h.log.Info().Str("user_id", user.ID).Msg("user logged in successfully")
	view := accounts.NewUserView(user)
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: &view})
}

// AdminLogin handles dashboard login.
// POST /api/admin/login
func (h *APIHandlers) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid admin login request")
		badRequest(c, "username and password are required")
		return
	}

	token, err := h.authService.AdminLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err, "failed to login admin")
		return
	}

	h.log.Info().Str("username", req.Username).Msg("admin logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}
