package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	httpadapter "github.com/complior/complior/internal/adapter/http"
	"github.com/complior/complior/internal/adapter/persistence"
	"github.com/complior/complior/internal/config"
	"github.com/complior/complior/internal/service/cache"
	"github.com/complior/complior/internal/service/logger"
	"github.com/complior/complior/internal/service/token"
	"github.com/complior/complior/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "complior",
	})
	ctx := context.Background()
	appLogger.Info(ctx, "application starting", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	appLogger.Info(ctx, "database connection established", nil)

	applCache, err := cache.New(cache.Config{
		Enabled:  cfg.Cache.Enabled,
		RedisURL: cfg.Cache.RedisURL,
		TTL:      cfg.Cache.TTL,
	}, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize applicability cache: %v", err)
	}

	// repositories
	orgRepo := persistence.NewPostgresOrganizationRepository(db)
	reqRepo := persistence.NewPostgresRequirementRepository(db)
	evidenceRepo := persistence.NewPostgresEvidenceRepository(db)
	applRepo := persistence.NewPostgresApplicabilityRepository(db)
	auditRepo := persistence.NewPostgresAuditRepository(db)
	rowStore := persistence.NewPostgresRowStore(db)

	// use cases
	auditUseCase := usecase.NewAuditUseCase(auditRepo, rowStore, appLogger)
	applicabilityUseCase := usecase.NewApplicabilityUseCase(orgRepo, applRepo, applCache, auditUseCase, appLogger)
	orgUseCase := usecase.NewOrganizationUseCase(orgRepo, auditUseCase, appLogger)
	reqUseCase := usecase.NewRequirementUseCase(reqRepo, auditUseCase, appLogger)
	evidenceUseCase := usecase.NewEvidenceUseCase(evidenceRepo, auditUseCase, appLogger)

	tokenService := token.NewService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	authMiddleware := httpadapter.NewAuthMiddleware(tokenService)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, httpadapter.Handlers{
		Organizations: orgUseCase,
		Requirements:  reqUseCase,
		Evidence:      evidenceUseCase,
		Applicability: applicabilityUseCase,
		Audit:         auditUseCase,
		Auth:          authMiddleware,
	}, appLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case sig := <-quit:
		appLogger.Info(ctx, "shutdown signal received", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	appLogger.Info(ctx, "application stopped", nil)
}
