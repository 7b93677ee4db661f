// Dev-утилита: публикует батчи случайных сущностей в mobility_topic,
// чтобы прогнать инжест stream-service без настоящих коннекторов.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/shared/config"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/Franelll/MaaS-sub000/internal/shared/mq"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"

	"github.com/google/uuid"
)

func main() {
	provider := flag.String("provider", "tier", "id провайдера батча")
	count := flag.Int("count", 20, "сущностей в батче")
	lat := flag.Float64("lat", 52.2297, "широта центра разброса")
	lng := flag.Float64("lng", 21.0122, "долгота центра разброса")
	interval := flag.Duration("interval", 5*time.Second, "период публикации; 0 — один батч")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	lg := logger.NewLogger("publish-entities")
	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, lg)
	if err != nil {
		log.Fatalln("failed to connect to rabbitmq:", err)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(mqConn); err != nil {
		log.Fatalln("failed to set up topology:", err)
	}

	publish := func() {
		batch := domain.Batch{ProviderID: *provider}
		for i := 0; i < *count; i++ {
			batch.Entities = append(batch.Entities, domain.Entity{
				ID:       uuid.NewString(),
				Type:     domain.EntityScooter,
				Provider: *provider,
				Location: geo.Point{
					Lat: *lat + (rand.Float64()-0.5)*0.02,
					Lon: *lng + (rand.Float64()-0.5)*0.02,
				},
				UpdatedAt: time.Now().UTC(),
			})
		}

		body, err := json.Marshal(batch)
		if err != nil {
			log.Fatalln("failed to marshal batch:", err)
		}
		if err := mqConn.Publish(ctx, mq.ExchangeMobility, mq.QueueVehicleBatches, body); err != nil {
			lg.Error(logger.Entry{
				Action:  "batch_publish_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			return
		}
		lg.Info(logger.Entry{
			Action:     "batch_published",
			Message:    "entity batch published",
			Additional: map[string]any{"provider": *provider, "entities": *count},
		})
	}

	publish()
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}
