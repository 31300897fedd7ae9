package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORAGE_DRIVER", config.StorageMemory)
	t.Setenv("GIN_MODE", "test")
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "change-me-now")
	return config.Load()
}

func TestMemoryServerSeedsAdmin(t *testing.T) {
	srv, err := NewServer(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(srv.Cleanup)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("root@example.com", "change-me-now")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := `{"email":"new@example.com","password":"longenough"}`
	req = httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"USER"`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewServerRejectsUnknownStorage(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.StorageDriver = "sqlite"

	_, err := NewServer(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown storage driver")
}
