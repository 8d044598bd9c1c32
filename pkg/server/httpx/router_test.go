package httpx

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aditya-xq/PicToWebP/pkg/config"
	"github.com/aditya-xq/PicToWebP/pkg/notify"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
	"github.com/aditya-xq/PicToWebP/pkg/server/api"
)

func testDeps() *api.Deps {
	ready := &atomic.Bool{}
	ready.Store(true)
	return &api.Deps{
		Registry: runs.NewStore(),
		Hub:      notify.NewHub(),
		Ready:    ready,
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(config.DefaultConfig().Server, testDeps())
	require.NotNil(t, router)
}

func TestNewRouter_HealthzMounted(t *testing.T) {
	router := NewRouter(config.DefaultConfig().Server, testDeps())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestHealthzHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	HealthzHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestReadyzHandler_NotReady(t *testing.T) {
	deps := testDeps()
	deps.Ready.Store(false)
	router := NewRouter(config.DefaultConfig().Server, deps)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyzHandler_Ready(t *testing.T) {
	router := NewRouter(config.DefaultConfig().Server, testDeps())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestIndexServed(t *testing.T) {
	router := NewRouter(config.DefaultConfig().Server, testDeps())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "source_folder")
}

func TestAPIRoutesMounted(t *testing.T) {
	router := NewRouter(config.DefaultConfig().Server, testDeps())

	// Listing conversions on a fresh registry is an empty, valid response.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":0`)
}

func TestUnknownRouteIs404(t *testing.T) {
	router := NewRouter(config.DefaultConfig().Server, testDeps())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/conversions", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
