package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Franelll/MaaS-sub000/internal/shared/config"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/Franelll/MaaS-sub000/internal/stream/bootstrap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	bootstrap.Run(ctx, cfg, logger.NewLogger("stream-service"))
}
