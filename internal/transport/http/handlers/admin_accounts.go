package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/transport/http/middleware"
	"github.com/avelar/studio-identity/internal/usecase"
)

// AdminAccountsHandler exposes account management for admins. Role changes
// only happen here; the public surface never takes a role from a client.
type AdminAccountsHandler struct {
	accounts *usecase.AccountService
}

// NewAdminAccountsHandler constructs AdminAccountsHandler.
func NewAdminAccountsHandler(accounts *usecase.AccountService) *AdminAccountsHandler {
	return &AdminAccountsHandler{accounts: accounts}
}

// RegisterRoutes binds the admin routes. Caller wraps with RequireAuth and
// RequireRole(admin).
func (h *AdminAccountsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/accounts", h.list)
	r.PATCH("/accounts/:id/role", h.changeRole)
	r.DELETE("/accounts/:id", h.delete)
}

// List godoc
// @Summary List all accounts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/admin/accounts [get]
func (h *AdminAccountsHandler) list(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		summaries = append(summaries, newAccountSummary(a))
	}

	c.JSON(http.StatusOK, AccountListResponse{Accounts: summaries, Total: len(summaries)})
}

// ChangeRole godoc
// @Summary Change an account's role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body RoleChangeRequest true "Role change payload"
// @Success 200 {object} AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/accounts/{id}/role [patch]
func (h *AdminAccountsHandler) changeRole(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "role is required"))
		return
	}

	account, err := h.accounts.ChangeRole(c.Request.Context(), actorID, c.Param("id"), domain.Role(req.Role))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "unknown role"},
			{Err: usecase.ErrSelfDemotion, Status: http.StatusBadRequest, Message: "cannot change your own role"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "role change failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// Delete godoc
// @Summary Delete an account
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/accounts/{id} [delete]
func (h *AdminAccountsHandler) delete(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.accounts.DeleteAccount(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSelfDemotion, Status: http.StatusBadRequest, Message: "cannot delete your own account"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "account deletion failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}
