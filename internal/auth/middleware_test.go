package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, repository.UserRepository) {
	t.Helper()
	users, _, _ := memory.NewStore().Repositories()
	tokens := NewTokenManager("secret", time.Hour)
	mw := NewAuthMiddleware(tokens, users)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Message)
	}})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Name)
	})
	app.Get("/staff", mw.Handle, Require(domain.ActionStaffDirectory), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Delete("/tickets", mw.Handle, Require(domain.ActionTicketDelete), func(c *fiber.Ctx) error {
		return c.SendString("deleted")
	})
	return app, tokens, users
}

func seed(t *testing.T, users repository.UserRepository, role domain.Role, active bool) *domain.User {
	t.Helper()
	u := &domain.User{Name: "Sam " + string(role), Email: string(role) + "@example.com", Role: role, IsActive: active}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func call(t *testing.T, app *fiber.App, method, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHandleLoadsPrincipal(t *testing.T) {
	app, tokens, users := newTestApp(t)
	u := seed(t, users, domain.RoleUser, true)
	token, _, err := tokens.GenerateToken(u.ID)
	require.NoError(t, err)

	status, body := call(t, app, http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, u.Name, body)
}

func TestHandleRejectsBadCredentials(t *testing.T) {
	app, tokens, users := newTestApp(t)
	inactive := seed(t, users, domain.RoleUser, false)
	inactiveToken, _, _ := tokens.GenerateToken(inactive.ID)
	ghostToken, _, _ := tokens.GenerateToken("7b0f0d0e-3a55-4f4c-9d7e-1f2a3b4c5d6e")

	for name, token := range map[string]string{
		"missing":  "",
		"garbage":  "not-a-jwt",
		"inactive": inactiveToken,
		"deleted":  ghostToken,
	} {
		status, _ := call(t, app, http.MethodGet, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, status, name)
	}
}

func TestRoleGuards(t *testing.T) {
	app, tokens, users := newTestApp(t)
	user := seed(t, users, domain.RoleUser, true)
	support := seed(t, users, domain.RoleSupport, true)
	admin := seed(t, users, domain.RoleAdmin, true)
	userToken, _, _ := tokens.GenerateToken(user.ID)
	supportToken, _, _ := tokens.GenerateToken(support.ID)
	adminToken, _, _ := tokens.GenerateToken(admin.ID)

	status, _ := call(t, app, http.MethodGet, "/staff", userToken)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodGet, "/staff", supportToken)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodDelete, "/tickets", supportToken)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodDelete, "/tickets", adminToken)
	assert.Equal(t, http.StatusOK, status)
}
