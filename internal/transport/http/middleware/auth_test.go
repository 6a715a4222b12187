package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/security"
	"github.com/avelar/studio-identity/internal/repository"
	"github.com/avelar/studio-identity/internal/usecase"
)

type staticAccountRepo struct {
	account *domain.Account
}

func (r *staticAccountRepo) Create(context.Context, domain.Account) error { return nil }

func (r *staticAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if r.account != nil && r.account.ID == id {
		clone := *r.account
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *staticAccountRepo) GetByEmail(context.Context, string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (r *staticAccountRepo) GetByVerificationTokenHash(context.Context, string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (r *staticAccountRepo) GetByResetTokenHash(context.Context, string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (r *staticAccountRepo) List(context.Context) ([]domain.Account, error) { return nil, nil }

func (r *staticAccountRepo) UpdateProfile(context.Context, domain.Account) error { return nil }

func (r *staticAccountRepo) UpdatePassword(context.Context, string, string, time.Time) error {
	return nil
}

func (r *staticAccountRepo) UpdateRole(context.Context, string, domain.Role) error { return nil }

func (r *staticAccountRepo) MarkVerified(context.Context, string) error { return nil }

func (r *staticAccountRepo) SetVerificationToken(context.Context, string, string) error { return nil }

func (r *staticAccountRepo) SetResetToken(context.Context, string, string, time.Time) error {
	return nil
}

func (r *staticAccountRepo) ClearResetToken(context.Context, string) error { return nil }

func (r *staticAccountRepo) Delete(context.Context, string) error { return nil }

var _ port.AccountRepository = (*staticAccountRepo)(nil)

func newGateFixture(t *testing.T, role domain.Role) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := security.NewTokenCodec("gate-test-secret", "studio-identity-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}

	account := &domain.Account{
		ID:           "acc-1",
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: "encoded",
		Role:         role,
		IsVerified:   true,
	}
	auth := usecase.NewAuthService(&staticAccountRepo{account: account}, codec, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/protected", RequireAuth(auth), func(c *gin.Context) {
		got, ok := GetAuthenticatedAccount(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no account in context"})
			return
		}
		if got.PasswordHash != "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password hash leaked into context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": got.ID})
	})
	r.GET("/admin", RequireAuth(auth), RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, err := codec.Issue(account.ID, account.Role)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	return r, token
}

func TestRequireAuth_AcceptsBearerToken(t *testing.T) {
	r, token := newGateFixture(t, domain.RoleStudent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuth_Rejections(t *testing.T) {
	r, _ := newGateFixture(t, domain.RoleStudent)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireAuth_DeletedAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	codec, err := security.NewTokenCodec("gate-test-secret", "studio-identity-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}
	auth := usecase.NewAuthService(&staticAccountRepo{}, codec, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/protected", RequireAuth(auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := codec.Issue("gone-account", domain.RoleStudent)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted subject, got %d", w.Code)
	}
}

func TestRequireRole_StudentForbidden(t *testing.T) {
	r, token := newGateFixture(t, domain.RoleStudent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student on admin route, got %d", w.Code)
	}
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	r, token := newGateFixture(t, domain.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}
