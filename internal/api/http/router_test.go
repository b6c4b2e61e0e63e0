package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	"github.com/spec-kit/support-desk/internal/service"
)

type testServer struct {
	app    *fiber.App
	users  repository.UserRepository
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Name: "support-desk-test", BodyLimitBytes: 1 << 20, RequestTimeoutSeconds: 5},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1, BcryptCost: 4},
		RateLimit: config.RateLimitConfig{Max: rateLimit, WindowSeconds: 60},
		CORS:      config.CORSConfig{AllowOrigins: "*"},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	users, tickets, history := memory.NewStore().Repositories()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: users})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: history,
	})
	userService := service.NewUserService(service.UserDependencies{UserRepo: users, TicketRepo: tickets})

	app := NewApp(cfg.App, logger, metrics)
	RegisterMiddlewares(app, cfg, logger, metrics)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
		Metrics:        metrics,
		RateLimit:      cfg.RateLimit,
	})
	return &testServer{app: app, users: users, tokens: authService.TokenManager()}
}

func (s *testServer) seedStaff(t *testing.T, name, email string, role domain.Role) (*domain.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("secret1", 4)
	require.NoError(t, err)
	u := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, _, err := s.tokens.GenerateToken(u.ID)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, 100)

	status, body := s.do(t, nethttp.MethodGet, "/api/health", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "OK", body["status"])

	for _, path := range []string{"/api/nope", "/api/tickets/x/y/z", "/api/users/a/b/c"} {
		status, body = s.do(t, nethttp.MethodGet, path, "", nil)
		assert.Equal(t, nethttp.StatusNotFound, status, path)
		assert.Equal(t, "Route not found", body["message"], path)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	s := newTestServer(t, 100)

	status, body := s.do(t, nethttp.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "No token provided, authorization denied", body["message"])

	status, _ = s.do(t, nethttp.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestValidationErrorsAreListed(t *testing.T) {
	s := newTestServer(t, 100)

	status, body := s.do(t, nethttp.MethodPost, "/api/auth/register", "", map[string]any{"name": "J", "email": "bad"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, 100)
	_, adminToken := s.seedStaff(t, "Ada Admin", "ada@example.com", domain.RoleAdmin)
	sam, _ := s.seedStaff(t, "Sam Support", "sam@example.com", domain.RoleSupport)

	status, body := s.do(t, nethttp.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Jo Lee", "email": "jo@x.com", "password": "secret1",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.NotContains(t, body["user"], "password")

	status, _ = s.do(t, nethttp.MethodPost, "/api/auth/login", "", map[string]any{"email": "jo@x.com", "password": "nope"})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, body = s.do(t, nethttp.MethodPost, "/api/tickets", token, map[string]any{
		"title":       "Cannot log in",
		"description": "Error on submit page",
		"category":    "technical",
		"priority":    "high",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	ticket := body["ticket"].(map[string]any)
	assert.Equal(t, "open", ticket["status"])
	assert.Equal(t, "Jo Lee", ticket["creator"].(map[string]any)["name"])
	ticketID := ticket["id"].(string)

	status, _ = s.do(t, nethttp.MethodPut, "/api/tickets/"+ticketID+"/assign", token, map[string]any{"assignedTo": sam.ID})
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = s.do(t, nethttp.MethodPut, "/api/tickets/"+ticketID+"/assign", adminToken, map[string]any{"assignedTo": sam.ID})
	require.Equal(t, nethttp.StatusOK, status)
	assignedTo := body["ticket"].(map[string]any)["assignedTo"].(map[string]any)
	assert.Equal(t, "Sam Support", assignedTo["name"])

	status, body = s.do(t, nethttp.MethodPost, "/api/tickets/"+ticketID+"/satisfaction", token, map[string]any{"rating": 5})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "Can only rate resolved or closed tickets", body["message"])

	status, body = s.do(t, nethttp.MethodGet, "/api/tickets?limit=5", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["tickets"], 1)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["totalItems"])
	assert.Equal(t, false, pagination["hasNextPage"])

	status, body = s.do(t, nethttp.MethodGet, "/api/tickets/"+ticketID+"/history", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["history"], 1)

	status, _ = s.do(t, nethttp.MethodGet, "/api/tickets?sortBy=color", token, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = s.do(t, nethttp.MethodDelete, "/api/tickets/"+ticketID, token, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, body = s.do(t, nethttp.MethodDelete, "/api/tickets/"+ticketID, adminToken, nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Ticket deleted successfully", body["message"])
}

func TestUserAdministrationRequiresAdmin(t *testing.T) {
	s := newTestServer(t, 100)
	_, adminToken := s.seedStaff(t, "Ada Admin", "ada@example.com", domain.RoleAdmin)
	_, supportToken := s.seedStaff(t, "Sam Support", "sam@example.com", domain.RoleSupport)

	status, _ := s.do(t, nethttp.MethodGet, "/api/users", supportToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body := s.do(t, nethttp.MethodGet, "/api/users/support/staff", supportToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["supportStaff"], 2)

	status, body = s.do(t, nethttp.MethodGet, "/api/users/stats/overview", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])

	status, body = s.do(t, nethttp.MethodGet, "/api/users?role=support", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["users"], 1)
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	creds := map[string]any{"email": "nobody@example.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, nethttp.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, nethttp.StatusBadRequest, status)
	}
	status, body := s.do(t, nethttp.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, nethttp.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 100)
	s.do(t, nethttp.MethodGet, "/api/health", "", nil)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
