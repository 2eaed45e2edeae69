package resource

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
	"github.com/zhouzirui/mindwell/backend/pkg/utils"
)

// Handler 求助资源的HTTP处理器
type Handler struct {
	resources resource.Store
}

// New 创建资源处理器
func New(resources resource.Store) *Handler {
	return &Handler{
		resources: resources,
	}
}

// RegisterRoutes 注册资源相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/resources", h.handleList)
	r.Get("/resources/crisis", h.handleListCrisis)
	r.Get("/resources/{resourceID}", h.handleGet)
}

// handleList 列出所有资源，可按 kind 过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		utils.RespondJSON(w, http.StatusOK, h.resources.List())
		return
	}

	switch resource.Kind(kind) {
	case resource.KindCrisis, resource.KindSupport:
		utils.RespondJSON(w, http.StatusOK, h.resources.ListByKind(resource.Kind(kind)))
	default:
		utils.RespondError(w, http.StatusBadRequest, "unknown resource kind: "+kind)
	}
}

// handleListCrisis 列出危机热线
func (h *Handler) handleListCrisis(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.resources.ListByKind(resource.KindCrisis))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, ok := h.resources.FindByID(chi.URLParam(r, "resourceID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "resource not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}
