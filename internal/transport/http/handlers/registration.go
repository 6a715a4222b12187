package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avelar/studio-identity/internal/usecase"
)

// RegistrationHandler exposes account registration and email verification.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	tokenTTL     int
}

// NewRegistrationHandler constructs RegistrationHandler. tokenTTLSeconds is
// echoed in the verify response so clients know the token lifetime.
func NewRegistrationHandler(registration *usecase.RegistrationService, tokenTTLSeconds int) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, tokenTTL: tokenTTLSeconds}
}

const (
	registeredMessage         = "check your inbox to verify your email"
	verificationResendMessage = "if the address needs verification, an email is on the way"
)

// RegisterRoutes binds registration routes.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.register)
	r.POST("/verify-email", h.verifyEmail)
	r.POST("/resend-verification", h.resendVerification)
}

// registerBindError names the first missing field of a rejected payload.
func registerBindError(req RegisterRequest) string {
	switch {
	case req.Name == "":
		return "name is required"
	case req.Email == "":
		return "email is required"
	case req.Password == "":
		return "password is required"
	}
	return "invalid request body"
}

// Register godoc
// @Summary Register a new account
// @Description Creates an unverified account and emails a verification link.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, registerBindError(req)))
		return
	}

	_, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrVerificationDeliveryFailed, Status: http.StatusBadGateway, Message: "could not send verification email, please try again"},
		}, http.StatusBadRequest, "registration failed")
		return
	}

	// The account is created but unusable until verified; the body stays
	// neutral and carries no account data.
	c.JSON(http.StatusAccepted, MessageResponse{Message: registeredMessage})
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Description Emails a fresh verification link. The response does not reveal whether the address is registered.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body ResendVerificationRequest true "Resend payload"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/auth/resend-verification [post]
func (h *RegistrationHandler) resendVerification(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.registration.ResendVerification(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationDeliveryFailed, Status: http.StatusBadGateway, Message: "could not send verification email, please try again"},
		}, http.StatusInternalServerError, "verification resend failed")
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: verificationResendMessage})
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Description Consumes the emailed verification secret and signs the account in.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification payload"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/auth/verify-email [post]
func (h *RegistrationHandler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	account, token, err := h.registration.Verify(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or already used verification token"},
		}, http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.tokenTTL,
		Account:     newAccountSummary(account),
	})
}
