package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/servicemap-console/internal/console/handler"
	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/infra"
	"github.com/xela07ax/servicemap-console/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// nil - консоль без авторизации (auth.enabled=false)
	authValidator auth.TokenValidator
	uploadLimiter *rate.Limiter

	authHandler     *handler.AuthHandler     // /auth/token
	topologyHandler *handler.TopologyHandler // /v1/topology
	employeeHandler *handler.EmployeeHandler // /v1/employees
}

// NewConsoleServer собирает роутер консоли. authValidator и authH могут быть nil.
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	authValidator auth.TokenValidator,
	authH *handler.AuthHandler,
	topologyH *handler.TopologyHandler,
	employeeH *handler.EmployeeHandler,
) *ConsoleServer {
	limit := rate.Inf
	if cfg.Topology.UploadRPS > 0 {
		limit = rate.Limit(cfg.Topology.UploadRPS)
	}
	burst := cfg.Topology.UploadBurst
	if burst <= 0 {
		burst = 1
	}

	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		authValidator:   authValidator,
		uploadLimiter:   rate.NewLimiter(limit, burst),
		authHandler:     authH,
		topologyHandler: topologyH,
		employeeHandler: employeeH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// --- 2. Публичные роуты ---
	r.Group(func(r chi.Router) {
		if s.authHandler != nil {
			r.Post("/auth/token", s.authHandler.Login)
		}
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. API (RS256 токен, если auth включен) ---
	r.Group(func(r chi.Router) {
		if s.authValidator != nil {
			r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		}

		r.Route("/v1/topology", func(r chi.Router) {
			r.With(auth.RequireScope(domain.ScopeTopologyRead)).Get("/graph", s.topologyHandler.Graph)
			r.With(auth.RequireScope(domain.ScopeTopologyRead)).Get("/services/{name}/timeseries", s.topologyHandler.TimeSeries)

			r.Route("/datasets", func(r chi.Router) {
				r.With(auth.RequireScope(domain.ScopeTopologyRead)).Get("/", s.topologyHandler.Datasets)
				r.With(auth.RequireScope(domain.ScopeTopologyWrite), RateLimit(s.uploadLimiter)).Post("/", s.topologyHandler.Upload)
				r.With(auth.RequireScope(domain.ScopeTopologyWrite)).Post("/{id}/restore", s.topologyHandler.Restore)
			})
		})

		if s.employeeHandler != nil {
			r.Route("/v1/employees", func(r chi.Router) {
				r.Use(auth.RequireScope(domain.ScopeEmployeesRead))
				r.Get("/", s.employeeHandler.Report)
				r.Get("/departments", s.employeeHandler.Departments)
			})
		}
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
