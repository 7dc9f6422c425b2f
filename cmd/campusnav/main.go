package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "campusnav",
		Usage: "Live campus navigation: route tracking, off-route alerts and recalculation",
		Commands: []*cli.Command{
			serveCommand(),
			importLocationsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("campusnav failed")
	}
}
