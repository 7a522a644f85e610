package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/d2oracle/oracle/core/infra/buildinfo"
	"github.com/d2oracle/oracle/core/infra/config"
	"github.com/d2oracle/oracle/core/server"
)

func main() {
	log.Println("oracle server starting...")
	buildinfo.Log("oracle-server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, cfg); err != nil {
		log.Fatalf("oracle server error: %v", err)
	}
}
