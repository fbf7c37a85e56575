package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"nightdrive/server/internal/app"
)

func main() {
	configDir := flag.String("config-dir", "", "directory containing nightdrive.yaml (default: working directory)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigDir: *configDir}); err != nil {
		log.Fatalf("%v", err)
	}
}
