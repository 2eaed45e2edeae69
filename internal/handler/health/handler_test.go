package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindwell/backend/internal/store"
)

func check(t *testing.T, p Pinger) (int, Response) {
	t.Helper()
	r := chi.NewRouter()
	New(p).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body Response
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return resp.Code, body
}

func TestHealthy(t *testing.T) {
	code, body := check(t, store.NewMemoryStore())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "pass", body.Checks["store:memory"].Status)
}

func TestDegradedWhenStoreClosed(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Close())

	code, body := check(t, st)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "fail", body.Checks["store:memory"].Status)
}

func TestDegradedWithoutStore(t *testing.T) {
	code, body := check(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not configured", body.Checks["store"].Message)
}
