package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDependency struct {
	enabled bool
	err     error
}

func (s stubDependency) Enabled() bool { return s.enabled }
func (s stubDependency) Ping(context.Context) error { return s.err }

func readyStatus(t *testing.T, deps map[string]Dependency) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	h := NewHealthHandler("support-desk", "test", deps)
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestReadyReportsDependencies(t *testing.T) {
	status, body := readyStatus(t, map[string]Dependency{
		"postgres": stubDependency{enabled: true},
		"redis":    stubDependency{enabled: false},
	})
	assert.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestReadyFailsWhenDependencyIsDown(t *testing.T) {
	status, body := readyStatus(t, map[string]Dependency{
		"postgres": stubDependency{enabled: true, err: errors.New("connection refused")},
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body["code"])
}

func TestLiveMatchesHealthContract(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler("support-desk", "test", nil).Live)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Ticket System API is running", body["message"])
}
