package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/planner/adapters/in/transport"
	"github.com/Franelll/MaaS-sub000/internal/planner/scoring"
	"github.com/Franelll/MaaS-sub000/internal/shared/auth"
	"github.com/Franelll/MaaS-sub000/internal/shared/config"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
)

// Run запускает Planner Service
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "planner_service_starting", Message: "initializing planner service"})

	// 1. Политика скоринга из конфигурации
	policy, err := scoring.PolicyFromConfig(cfg.Scoring)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "scoring_policy_invalid",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	scorer := scoring.NewScorer(policy)

	// 2. JWT + HTTP handlers
	jwtService := auth.NewJWTService(cfg.JWT)
	handler := transport.NewHandler(scorer, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"planner"}`))
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/routes/rank", handler.RankRoutes)
	mux.Handle("/v1/", transport.JWTMiddleware(jwtService, log)(protected))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Services.PlannerServicePort),
		Handler: mux,
	}

	go func() {
		log.Info(logger.Entry{
			Action:  "planner_service_listening",
			Message: server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(logger.Entry{
				Action:  "http_server_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	log.Info(logger.Entry{Action: "planner_service_stopped", Message: "planner service shut down"})
}
