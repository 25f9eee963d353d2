package main

import (
	"context"
	"log"

	"github.com/pd15/saocontacts/internal/client/cli"
	"github.com/pd15/saocontacts/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadDesktopConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
