package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avelar/studio-identity/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary is the outward view of an account. Credential material
// never appears here.
type AccountSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	Avatar     string    `json:"avatar,omitempty"`
	Favorites  []string  `json:"favorites,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:         account.ID,
		Name:       account.Name,
		Email:      account.Email,
		Role:       string(account.Role),
		IsVerified: account.IsVerified,
		Avatar:     account.Avatar,
		Favorites:  account.Favorites,
		CreatedAt:  account.CreatedAt,
	}
}

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Avatar   string `json:"avatar"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

// VerifyEmailRequest carries the emailed verification secret.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse describes a successful authentication: a bearer token plus
// the signed-in account.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Account     AccountSummary `json:"account"`
}

// PasswordResetRequestBody carries the address to send a reset secret to.
type PasswordResetRequestBody struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetConfirmRequest finalizes a reset with the emailed secret.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordChangeRequest rotates the password of an authenticated account.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ProfileUpdateRequest carries a partial profile update. Omitted fields are
// left unchanged; favorites replaces the whole set when present.
type ProfileUpdateRequest struct {
	Name      *string  `json:"name"`
	Email     *string  `json:"email"`
	Avatar    *string  `json:"avatar"`
	Favorites []string `json:"favorites"`
}

// RoleChangeRequest moves an account to a new role tier.
type RoleChangeRequest struct {
	Role string `json:"role" binding:"required"`
}

// AccountListResponse wraps the admin account listing.
type AccountListResponse struct {
	Accounts []AccountSummary `json:"accounts"`
	Total    int              `json:"total"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse reports readiness of downstream dependencies.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
