package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avelar/studio-identity/internal/transport/http/middleware"
	"github.com/avelar/studio-identity/internal/usecase"
)

// ProfileHandler exposes the authenticated account's own profile.
type ProfileHandler struct {
	accounts *usecase.AccountService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(accounts *usecase.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// RegisterRoutes binds the profile routes. Caller wraps with RequireAuth.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.PUT("/me", h.updateMe)
}

// Me godoc
// @Summary Get own profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountSummary
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/me [get]
func (h *ProfileHandler) me(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "authentication required"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// UpdateMe godoc
// @Summary Update own profile
// @Description Applies a partial update; favorites replaces the whole set when present.
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileUpdateRequest true "Profile update payload"
// @Success 200 {object} AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/me [put]
func (h *ProfileHandler) updateMe(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.accounts.UpdateProfile(c.Request.Context(), accountID, usecase.ProfileUpdateInput{
		Name:      req.Name,
		Email:     req.Email,
		Avatar:    req.Avatar,
		Favorites: req.Favorites,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "authentication required"},
		}, http.StatusBadRequest, "profile update failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}
