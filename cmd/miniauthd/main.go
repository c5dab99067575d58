package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/dirhub/miniauth/cmd/miniauthd/serve"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "miniauthd",
		Usage: "Exchange signed mini-app launch payloads for session tokens",
		Commands: []*cli.Command{
			serve.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
