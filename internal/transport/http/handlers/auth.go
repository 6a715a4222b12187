package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avelar/studio-identity/internal/usecase"
)

// AuthHandler exposes the credential login endpoint.
type AuthHandler struct {
	auth     *usecase.AuthService
	tokenTTL int
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, tokenTTLSeconds int) *AuthHandler {
	return &AuthHandler{auth: auth, tokenTTL: tokenTTLSeconds}
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.login)
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Verifies credentials and returns a bearer token with the account profile.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	account, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
			{Err: usecase.ErrAccountNotVerified, Status: http.StatusForbidden, Message: "email not verified"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.tokenTTL,
		Account:     newAccountSummary(account),
	})
}
