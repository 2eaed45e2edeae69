package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/mindwell/backend/internal/handler/chat"
	"github.com/zhouzirui/mindwell/backend/internal/handler/health"
	"github.com/zhouzirui/mindwell/backend/internal/handler/resource"
	"github.com/zhouzirui/mindwell/backend/internal/handler/stream"
	"github.com/zhouzirui/mindwell/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/mindwell/backend/internal/middleware"
	resourceModel "github.com/zhouzirui/mindwell/backend/internal/model/resource"
	"github.com/zhouzirui/mindwell/backend/internal/service/triage"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

// Dependencies 是路由需要的核心服务。
type Dependencies struct {
	Engine         *triage.Engine
	Store          store.Store
	Resources      resourceModel.Store
	Logger         zerolog.Logger
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Resources == nil {
		deps.Resources = resourceModel.NewMemoryStore(resourceModel.Seed())
	}

	r := chi.NewRouter()

	r.Use(middlewarePkg.Metrics)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Handle("/metrics", promhttp.Handler())

	var pinger health.Pinger
	if deps.Store != nil {
		pinger = deps.Store
	}
	health.New(pinger).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chat.New(deps.Engine, deps.Logger).RegisterRoutes(api)
		stream.New(deps.Engine, deps.Logger).RegisterRoutes(api)
		ws.New(deps.Engine, deps.Logger).RegisterRoutes(api)
		resource.New(deps.Resources).RegisterRoutes(api)
	})

	return r
}
