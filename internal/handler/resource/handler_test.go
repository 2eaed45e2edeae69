package resource

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(resource.NewMemoryStore(resource.Seed())).RegisterRoutes(r)
	return r
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestListResources(t *testing.T) {
	resp := get(t, setupRouter(), "/resources")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var items []resource.CrisisResource
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != len(resource.Seed()) {
		t.Fatalf("expected %d resources, got %d", len(resource.Seed()), len(items))
	}
}

func TestListCrisisResources(t *testing.T) {
	resp := get(t, setupRouter(), "/resources/crisis")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var items []resource.CrisisResource
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) == 0 || items[0].Contact != "988" {
		t.Fatalf("expected 988 first, got %+v", items)
	}
	for _, item := range items {
		if item.Kind != resource.KindCrisis {
			t.Fatalf("unexpected kind %q", item.Kind)
		}
	}
}

func TestListResourcesByKind(t *testing.T) {
	r := setupRouter()

	resp := get(t, r, "/resources?kind=support")
	var items []resource.CrisisResource
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, item := range items {
		if item.Kind != resource.KindSupport {
			t.Fatalf("unexpected kind %q", item.Kind)
		}
	}

	if resp := get(t, r, "/resources?kind=other"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetResource(t *testing.T) {
	r := setupRouter()

	if resp := get(t, r, "/resources/"+resource.PrimaryHotlineID); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := get(t, r, "/resources/missing"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
