package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/stream/adapters/in/in_amqp"
	outmemory "github.com/Franelll/MaaS-sub000/internal/stream/adapters/out/memory"
	"github.com/Franelll/MaaS-sub000/internal/stream/adapters/out/persistence"
	outws "github.com/Franelll/MaaS-sub000/internal/stream/adapters/out/ws"
	"github.com/Franelll/MaaS-sub000/internal/stream/application/ports/out"
	"github.com/Franelll/MaaS-sub000/internal/stream/application/usecase"
	"github.com/Franelll/MaaS-sub000/internal/stream/registry"

	"github.com/Franelll/MaaS-sub000/internal/shared/auth"
	"github.com/Franelll/MaaS-sub000/internal/shared/config"
	db_conn "github.com/Franelll/MaaS-sub000/internal/shared/db"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/Franelll/MaaS-sub000/internal/shared/mq"
	sharedws "github.com/Franelll/MaaS-sub000/internal/shared/ws"
)

// Run запускает Stream Service
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "stream_service_starting", Message: "initializing stream service"})

	// 1. Snapshot store: PostgreSQL либо in-memory (dev)
	var store out.EntityStore
	if cfg.Stream.UseMemoryStore {
		store = outmemory.NewStore()
		log.Info(logger.Entry{Action: "entity_store_memory", Message: "using in-memory entity store"})
	} else {
		dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal(logger.Entry{
				Action:  "db_connection_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		defer db_conn.Close(dbPool, log)

		if err := db_conn.Migrate(ctx, dbPool); err != nil {
			log.Error(logger.Entry{
				Action:  "db_migration_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			// Не падаем если миграции уже применены
		}
		store = persistence.NewEntityPgStore(dbPool)
	}

	// 2. RabbitMQ + топология (идемпотентно)
	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(mqConn); err != nil {
		log.Error(logger.Entry{
			Action:  "rabbitmq_topology_setup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 3. JWT сервис для аутентификации WebSocket
	jwtService := auth.NewJWTService(cfg.JWT)
	authFunc := func(token string) (string, string, error) {
		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID, claims.Role, nil
	}

	// 4. Hub + реестр подписок + service
	hub := sharedws.NewHub(authFunc, cfg.WebSocket.SendBufferSize, log)
	reg := registry.New(cfg.Stream.RegistryShards)
	notifier := outws.NewSubscriberNotifier(hub)

	service := usecase.NewStreamService(
		reg,
		store,
		notifier,
		time.Duration(cfg.Stream.DebounceMS)*time.Millisecond,
		log,
	)
	defer service.Close()

	hub.SetMessageHandler(func(client *sharedws.Client, msgType string, data json.RawMessage) error {
		return service.HandleMessage(ctx, client.SubscriberID, msgType, data)
	})
	hub.SetDisconnectHandler(service.OnDisconnect)

	go hub.Run(ctx)

	// 5. Инжест: consumer батчей сущностей
	consumer := in_amqp.NewEntityConsumer(mqConn, service, log)
	if err := consumer.Start(ctx); err != nil {
		log.Fatal(logger.Entry{
			Action:  "entity_consumer_start_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 6. HTTP: health + websocket endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"stream","connections":%d,"subscriptions":%d}`,
			hub.ConnectedCount(), reg.Len())
	})
	mux.HandleFunc("GET /ws", hub.ServeWS)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Services.StreamServicePort),
		Handler: mux,
	}

	go func() {
		log.Info(logger.Entry{
			Action:  "stream_service_listening",
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

	log.Info(logger.Entry{Action: "stream_service_stopped", Message: "stream service shut down"})
}
