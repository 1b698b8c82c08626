package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/flashboard/internal/server"
	"github.com/dmitrijs2005/flashboard/internal/server/config"
)

func main() {
	ctx := context.Background()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Fatalf("flashboard: %v", err)
	}

	app.Run(ctx)
}
