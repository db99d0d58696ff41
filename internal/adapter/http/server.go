package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/complior/complior/internal/service/logger"
	"github.com/complior/complior/internal/usecase"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	server *http.Server
	log    logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Organizations *usecase.OrganizationUseCase
	Requirements  *usecase.RequirementUseCase
	Evidence      *usecase.EvidenceUseCase
	Applicability *usecase.ApplicabilityUseCase
	Audit         *usecase.AuditUseCase
	Auth          *AuthMiddleware
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, handlers Handlers, log logger.Logger) *Server {
	router := mux.NewRouter()

	NewOrganizationHandler(handlers.Organizations, handlers.Auth).RegisterRoutes(router)
	NewRequirementHandler(handlers.Requirements, handlers.Auth).RegisterRoutes(router)
	NewEvidenceHandler(handlers.Evidence, handlers.Auth).RegisterRoutes(router)
	NewApplicabilityHandler(handlers.Applicability, handlers.Auth).RegisterRoutes(router)
	NewAuditHandler(handlers.Audit, handlers.Auth).RegisterRoutes(router)

	router.Use(requestMetaMiddleware)
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware)
	router.Use(recoveryMiddleware(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return &Server{
		addr: ":" + config.Port,
		log:  log,
		server: &http.Server{
			Addr:         ":" + config.Port,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info(context.Background(), "starting HTTP server", map[string]interface{}{"addr": s.addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
