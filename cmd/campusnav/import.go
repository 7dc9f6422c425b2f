package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/service"
	mongodb "github.com/endlessworld/campusnav/internal/infrastructure/db/mongo"
	"github.com/endlessworld/campusnav/internal/pkg/config"
	"github.com/endlessworld/campusnav/pkg/logger"
)

// catalogue is the YAML layout accepted by import-locations:
//
//	locations:
//	  - id: library
//	    name: CoICT Library
//	    type: library
//	    coordinates: {lat: -6.7711, lon: 39.2399}
type catalogue struct {
	Locations []domain.Location `yaml:"locations"`
}

func importLocationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-locations",
		Usage: "upsert a YAML catalogue of campus locations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "path to the YAML catalogue",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.Context)
			if err != nil {
				return err
			}
			log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "campusnav"})

			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer f.Close()

			locs, err := parseCatalogue(f)
			if err != nil {
				return err
			}

			client, db, err := mongodb.Connect(c.Context, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(c.Context) }()

			repo := mongodb.NewLocationRepository(db)
			if err := repo.EnsureIndexes(c.Context); err != nil {
				return err
			}

			n, err := service.NewLocationService(repo, cfg.Boundary.Bound(), logger.With(log, "import")).Import(c.Context, locs)
			if err != nil {
				return fmt.Errorf("imported %d of %d locations: %w", n, len(locs), err)
			}
			log.Info().Int("count", n).Str("file", c.String("file")).Msg("catalogue imported")
			return nil
		},
	}
}

// parseCatalogue decodes a catalogue, rejecting unknown keys so typos in a
// hand-edited file do not silently drop fields.
func parseCatalogue(r io.Reader) ([]domain.Location, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat catalogue
	if err := dec.Decode(&cat); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalogue is empty")
		}
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if len(cat.Locations) == 0 {
		return nil, errors.New("catalogue has no locations")
	}
	return cat.Locations, nil
}
