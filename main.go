package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Franelll/MaaS-sub000/internal/shared/config"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"

	plannerboot "github.com/Franelll/MaaS-sub000/internal/planner/bootstrap"
	streamboot "github.com/Franelll/MaaS-sub000/internal/stream/bootstrap"
)

func main() {
	svc := flag.String("service", "stream", "stream|planner|all")
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

	switch *svc {
	case "stream":
		streamboot.Run(ctx, cfg, logger.NewLogger("stream-service"))
	case "planner":
		plannerboot.Run(ctx, cfg, logger.NewLogger("planner-service"))
	case "all":
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			streamboot.Run(ctx, cfg, logger.NewLogger("stream-service"))
		}()
		go func() {
			defer wg.Done()
			plannerboot.Run(ctx, cfg, logger.NewLogger("planner-service"))
		}()
		wg.Wait()
	default:
		log.Fatalf("unknown service %q (want stream|planner|all)", *svc)
	}
}
