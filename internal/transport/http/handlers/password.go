package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avelar/studio-identity/internal/transport/http/middleware"
	"github.com/avelar/studio-identity/internal/usecase"
)

// resetRequestedMessage is returned for every reset request, known email or
// not, so the endpoint cannot be used to probe which addresses exist.
const resetRequestedMessage = "if that email is registered, a reset link is on its way"

// PasswordHandler exposes the reset flow and authenticated password change.
type PasswordHandler struct {
	resets *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(resets *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

// RegisterRoutes binds the public reset endpoints.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/password/reset-request", h.requestReset)
	r.POST("/password/reset-confirm", h.confirmReset)
}

// RegisterAuthenticatedRoutes binds endpoints that require a bearer token.
func (h *PasswordHandler) RegisterAuthenticatedRoutes(r *gin.RouterGroup) {
	r.POST("/password/change", h.changePassword)
}

// RequestReset godoc
// @Summary Request a password reset
// @Description Emails a single-use reset link when the address is registered. The response is identical either way.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequestBody true "Reset request payload"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/auth/password/reset-request [post]
func (h *PasswordHandler) requestReset(c *gin.Context) {
	var req PasswordResetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetDeliveryFailed, Status: http.StatusBadGateway, Message: "could not send reset email, please try again"},
		}, http.StatusInternalServerError, "reset request failed")
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: resetRequestedMessage})
}

// ConfirmReset godoc
// @Summary Complete a password reset
// @Description Consumes the emailed secret and installs the new password.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Reset confirmation payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/auth/password/reset-confirm [post]
func (h *PasswordHandler) confirmReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new_password are required"))
		return
	}

	if err := h.resets.ConfirmReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or already used reset token"},
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusBadRequest, Message: "reset token expired, request a new one"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated, you can sign in now"})
}

// ChangePassword godoc
// @Summary Change the current password
// @Description Rotates the password of the authenticated account after re-checking the current one.
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PasswordChangeRequest true "Password change payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/password/change [post]
func (h *PasswordHandler) changePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current_password and new_password are required"))
		return
	}

	if err := h.resets.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"},
		}, http.StatusInternalServerError, "password change failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
