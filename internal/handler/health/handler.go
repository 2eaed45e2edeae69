package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindwell/backend/pkg/utils"
)

// Version 服务版本
const Version = "0.1.0"

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"` // "pass" or "fail"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Handler 健康检查处理器
type Handler struct {
	store   Pinger
	timeout time.Duration
}

// New 创建健康检查处理器
func New(store Pinger) *Handler {
	return &Handler{store: store, timeout: 3 * time.Second}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]Check)
	healthy := true

	name := "store"
	if h.store == nil {
		checks[name] = Check{Status: "fail", Message: "not configured"}
		healthy = false
	} else {
		name = "store:" + h.store.Driver()
		start := time.Now()
		if err := h.store.Ping(ctx); err != nil {
			checks[name] = Check{Status: "fail", Message: "connection failed"}
			healthy = false
		} else {
			checks[name] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	utils.RespondJSON(w, code, Response{
		Status:    status,
		Version:   Version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
