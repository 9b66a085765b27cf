package main

import (
	"context"
	"log"

	"pm2dash/internal/app/server"
	"pm2dash/internal/config"
)

func main() {
	ctx := context.Background()
	cfg := config.MustLoad()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
